package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/pn"
	"github.com/cizektom/spots/pns"
	"github.com/cizektom/spots/sprouts"
)

func TestJobAssignmentRoundTrip(t *testing.T) {
	j := JobAssignment{
		Couple:        nimber.Couple{Position: sprouts.NewStarting(2), Nim: nimber.Nimber(1)},
		MaxIterations: 5000,
	}
	decoded, err := DecodeJobAssignment(EncodeJobAssignment(j), sprouts.Parse)
	require.NoError(t, err)
	assert.True(t, decoded.Couple.Equal(j.Couple))
	assert.Equal(t, j.MaxIterations, decoded.MaxIterations)
}

func TestCompletedJobRoundTripWithChildren(t *testing.T) {
	cj := CompletedJob{
		Parent: nimber.Couple{Position: sprouts.NewStarting(1), Nim: nimber.Loss},
		Info: pns.ExpansionInfo{
			PN:           pn.ProofNumbers{Proof: 2, Disproof: 3},
			MergedNimber: nimber.Nimber(7),
			Children: []pns.ExpandedChild{
				{Couple: nimber.Couple{Position: sprouts.NewStarting(0), Nim: nimber.Nimber(2)}, PN: pn.WinProofNumbers()},
			},
		},
	}
	decoded, err := DecodeCompletedJob(EncodeCompletedJob(cj), sprouts.Parse)
	require.NoError(t, err)

	assert.True(t, decoded.Parent.Equal(cj.Parent))
	assert.Equal(t, cj.Info.PN, decoded.Info.PN)
	assert.Equal(t, cj.Info.MergedNimber, decoded.Info.MergedNimber)
	require.Len(t, decoded.Info.Children, 1)
	assert.True(t, decoded.Info.Children[0].Couple.Equal(cj.Info.Children[0].Couple))
}

func TestCompletedJobRoundTripNoChildren(t *testing.T) {
	cj := CompletedJob{
		Parent: nimber.Couple{Position: sprouts.NewStarting(0), Nim: nimber.Loss},
		Info:   pns.ExpansionInfo{PN: pn.LossProofNumbers()},
	}
	decoded, err := DecodeCompletedJob(EncodeCompletedJob(cj), sprouts.Parse)
	require.NoError(t, err)
	assert.Empty(t, decoded.Info.Children)
	assert.True(t, decoded.Info.PN.IsLoss())
}

func TestNimberReportRoundTrip(t *testing.T) {
	report := map[string]nimber.Nimber{
		"0!":   nimber.Loss,
		"022!": nimber.Nimber(3),
	}
	decoded, err := DecodeNimberReport(EncodeNimberReport(report))
	require.NoError(t, err)
	assert.Equal(t, report, decoded)
}

func TestDecodeJobAssignmentRejectsMalformed(t *testing.T) {
	_, err := DecodeJobAssignment([]byte("garbage"), sprouts.Parse)
	assert.Error(t, err)
}
