package pn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cizektom/spots/errs"
)

func TestAddSaturatesToInf(t *testing.T) {
	v, err := PN(3).Add(Inf)
	require.NoError(t, err)
	assert.True(t, v.IsInf())

	v, err = Inf.Add(Inf)
	require.NoError(t, err)
	assert.True(t, v.IsInf())
}

func TestAddOverflow(t *testing.T) {
	_, err := FiniteMax.Add(1)
	assert.Error(t, err)
}

func TestSubUndefined(t *testing.T) {
	_, err := Inf.Sub(Inf)
	assert.ErrorIs(t, err, errs.ErrUndefinedSubtraction)
}

func TestSubInfMinusFinite(t *testing.T) {
	v, err := Inf.Sub(5)
	require.NoError(t, err)
	assert.True(t, v.IsInf())
}

func TestSubUnderflow(t *testing.T) {
	_, err := PN(1).Sub(2)
	assert.Error(t, err)
}

func TestOrderingPlacesInfAboveFinite(t *testing.T) {
	assert.True(t, PN(100).Less(Inf))
	assert.False(t, Inf.Less(PN(100)))
}

func TestProofNumbersOutcome(t *testing.T) {
	assert.Equal(t, Win, WinProofNumbers().ToOutcome())
	assert.Equal(t, Loss, LossProofNumbers().ToOutcome())
	assert.Equal(t, Unknown, ProofNumbers{Proof: 2, Disproof: 3}.ToOutcome())
}
