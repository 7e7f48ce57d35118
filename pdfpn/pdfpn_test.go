package pdfpn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/sprouts"
	"github.com/cizektom/spots/ttable"
)

func TestKanekoModeProvesSmallPosition(t *testing.T) {
	db := nimberdb.New(true)
	pd := New(db, ttable.NewPnsDatabase(0, true), nimber.DefaultProofNumberEstimator{}, 0)

	root := nimber.Couple{Position: sprouts.NewStarting(1), Nim: nimber.Loss}
	info := pd.Solve(root, 3, 10000)

	assert.True(t, info.PN.IsProved())
}

func TestSyncTreeModeProvesSmallPosition(t *testing.T) {
	db := nimberdb.New(true)
	pd := New(db, ttable.NewPnsDatabase(0, true), nimber.DefaultProofNumberEstimator{}, 2)

	root := nimber.Couple{Position: sprouts.NewStarting(1), Nim: nimber.Loss}
	info := pd.Solve(root, 3, 10000)

	assert.True(t, info.PN.IsProved())
}

func TestKanekoModeTrivialTerminalPosition(t *testing.T) {
	db := nimberdb.New(false)
	pd := New(db, ttable.NewPnsDatabase(0, true), nimber.DefaultProofNumberEstimator{}, 0)

	root := nimber.Couple{Position: sprouts.NewStarting(0), Nim: nimber.Loss}
	info := pd.Solve(root, 2, 100)

	assert.True(t, info.PN.IsProved())
	assert.True(t, info.PN.IsLoss())
}
