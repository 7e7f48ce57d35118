package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/pn"
	"github.com/cizektom/spots/pns"
	"github.com/cizektom/spots/sprouts"
)

func TestGetJobReturnsRootWhenUnexpanded(t *testing.T) {
	root := nimber.Couple{Position: sprouts.NewStarting(0), Nim: nimber.Loss}
	m := New(root, nimberdb.New(false), nimber.DefaultProofNumberEstimator{})

	h, ok := m.GetJob()
	require.True(t, ok)
	assert.Equal(t, m.Root(), h)
	assert.True(t, m.Tree.Node(h).Info.Locked)
}

func TestSubmitJobProvesTerminalPosition(t *testing.T) {
	root := nimber.Couple{Position: sprouts.NewStarting(0), Nim: nimber.Loss}
	db := nimberdb.New(false)
	m := New(root, db, nimber.DefaultProofNumberEstimator{})

	h, ok := m.GetJob()
	require.True(t, ok)

	m.SubmitJob(h, pns.ExpansionInfo{PN: pn.LossProofNumbers()})
	assert.True(t, m.Proved())
}

func TestCloseJobUnlocksWithoutProving(t *testing.T) {
	root := nimber.Couple{Position: sprouts.NewStarting(2), Nim: nimber.Loss}
	m := New(root, nimberdb.New(false), nimber.DefaultProofNumberEstimator{})

	h, ok := m.GetJob()
	require.True(t, ok)
	m.CloseJob(h)

	assert.False(t, m.Tree.Node(h).Info.Locked)
	assert.False(t, m.Proved())
}

func TestAddNimbersSkipsAlreadyKnown(t *testing.T) {
	root := nimber.Couple{Position: sprouts.NewStarting(0), Nim: nimber.Loss}
	db := nimberdb.New(false)
	db.Insert(root.Position.Compact(), nimber.Loss)
	m := New(root, db, nimber.DefaultProofNumberEstimator{})

	added := m.AddNimbers(map[string]nimber.Nimber{root.Position.Compact(): nimber.Nimber(5)})
	assert.Equal(t, 0, added)
}

func TestAddNimbersProvesMatchingNode(t *testing.T) {
	root := nimber.Couple{Position: sprouts.NewStarting(0), Nim: nimber.Nimber(3)}
	db := nimberdb.New(false)
	m := New(root, db, nimber.DefaultProofNumberEstimator{})

	added := m.AddNimbers(map[string]nimber.Nimber{root.Position.Compact(): nimber.Nimber(3)})
	assert.Equal(t, 1, added)
	assert.True(t, m.Proved())

	node := m.Tree.Node(m.Root())
	assert.True(t, node.Info.PN.IsLoss())
}
