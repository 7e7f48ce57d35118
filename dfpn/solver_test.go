package dfpn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/sprouts"
	"github.com/cizektom/spots/ttable"
)

func TestSolverProvesTrivialLoss(t *testing.T) {
	db := nimberdb.New(false)
	s := NewSolver(db, ttable.NewPnsDatabase(0, false), nimber.DefaultProofNumberEstimator{})

	root := nimber.Couple{Position: sprouts.NewStarting(0), Nim: nimber.Loss}
	info := s.Solve(root, 1000)

	assert.True(t, info.PN.IsProved())
	assert.True(t, info.PN.IsLoss())
}

func TestSolverSolvesSmallStartingPosition(t *testing.T) {
	db := nimberdb.New(false)
	s := NewSolver(db, ttable.NewPnsDatabase(0, false), nimber.DefaultProofNumberEstimator{})

	root := nimber.Couple{Position: sprouts.NewStarting(1), Nim: nimber.Loss}
	info := s.Solve(root, 10000)

	assert.True(t, info.PN.IsProved())
}

func TestExpandCoupleSatisfiesInnerExpander(t *testing.T) {
	db := nimberdb.New(false)
	s := NewSolver(db, ttable.NewPnsDatabase(0, false), nimber.DefaultProofNumberEstimator{})

	root := nimber.Couple{Position: sprouts.NewStarting(0), Nim: nimber.Loss}
	info := s.ExpandCouple(root, 100)

	assert.True(t, info.PN.IsProved())
}
