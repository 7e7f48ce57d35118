package pns

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/sprouts"
	"github.com/cizektom/spots/ttable"
)

func TestBasicPnsSolverProvesTrivialLoss(t *testing.T) {
	db := nimberdb.New(false)
	s := NewBasicPnsSolver(db, ttable.NewPnsDatabase(0, false), nimber.DefaultProofNumberEstimator{})

	root := nimber.Couple{Position: sprouts.NewStarting(0), Nim: nimber.Loss}
	info := s.Solve(root, 100)

	assert.True(t, info.PN.IsProved())
	assert.True(t, info.PN.IsLoss())
}

func TestBasicPnsSolverSolvesOneSpot(t *testing.T) {
	db := nimberdb.New(false)
	s := NewBasicPnsSolver(db, ttable.NewPnsDatabase(0, false), nimber.DefaultProofNumberEstimator{})

	root := nimber.Couple{Position: sprouts.NewStarting(1), Nim: nimber.Loss}
	info := s.Solve(root, 1000)

	assert.True(t, info.PN.IsProved())
}

func TestBasicPnsSolverStopsAtIterationBudget(t *testing.T) {
	db := nimberdb.New(false)
	s := NewBasicPnsSolver(db, ttable.NewPnsDatabase(0, false), nimber.DefaultProofNumberEstimator{})

	root := nimber.Couple{Position: sprouts.NewStarting(5), Nim: nimber.Loss}
	s.Solve(root, 1)

	assert.Greater(t, s.Tree.Size(), 1, "a single iteration should have expanded the root into children")
}
