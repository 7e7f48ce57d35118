package dfpn

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/pn"
	"github.com/cizektom/spots/pns"
	"github.com/cizektom/spots/ttable"
)

// DefaultBackupInterval mirrors dfpn.hpp's checkBackup default: a
// long-running search snapshots its nimber database once a day so a
// crash doesn't lose every discovery made so far.
const DefaultBackupInterval = 24 * time.Hour

// Solver is the sequential DFPN search of §4.8: a single call-stack
// path backed by a shared bucket transposition table and nimber
// database, governed at each level by a Thresholds quintuple.
type Solver struct {
	DB        *nimberdb.Database
	Stored    *ttable.PnsDatabase
	Estimator nimber.ProofNumberEstimator
	RNG       pns.RNG

	// LandSwitching mirrors PnsNode.getMpnIdx's landSwitching flag: when
	// false, multi-subgame nodes always descend into their first
	// non-locked (i.e. lowest-nimber) child.
	LandSwitching bool

	// Epsilon enables approximate search when >1 (see §4.8's
	// disproofTh_new note).
	Epsilon float64

	// MaxIterations bounds the total number of descent steps taken
	// across the whole search; Inf (0 value means unlimited is not
	// supported — callers pass a real budget).
	MaxIterations uint64

	// BackupInterval and BackupDir, when BackupDir is non-empty, make the
	// solver snapshot its nimber database periodically during a long
	// search (§4.8's periodic wall-clock check).
	BackupInterval time.Duration
	BackupDir      string

	// Terminate, when set (by ParallelDfpn's Kaneko mode), lets any
	// worker's early proof stop every sibling search without waiting for
	// its iteration budget to run out.
	Terminate *atomic.Bool

	iterations uint64
	lastBackup time.Time
}

// NewSolver builds a DFPN solver sharing db and stored with its caller.
func NewSolver(db *nimberdb.Database, stored *ttable.PnsDatabase, estimator nimber.ProofNumberEstimator) *Solver {
	return &Solver{
		DB:             db,
		Stored:         stored,
		Estimator:      estimator,
		LandSwitching:  true,
		BackupInterval: DefaultBackupInterval,
	}
}

// Solve runs DFPN from root under root-level thresholds (Inf/Inf,
// minTh=maxIterations) until root is proved or the iteration budget is
// exhausted, returning the final ExpansionInfo for root.
func (s *Solver) Solve(root nimber.Couple, maxIterations uint64) pns.ExpansionInfo {
	s.MaxIterations = maxIterations
	s.iterations = 0
	s.lastBackup = timeNow()

	node := pns.NewNode(root, s.Estimator)
	s.search(node, RootThresholds(pn.PN(maxIterations)))

	log.Info().
		Str("root", root.Compact()).
		Uint64("iterations", s.iterations).
		Str("outcome", node.Info.PN.ToOutcome().String()).
		Msg("dfpn solve finished")

	return pns.ExpansionInfo{
		PN:           node.Info.PN,
		MergedNimber: node.Info.MergedNimber,
		Children:     childExpansions(node),
	}
}

// ExpandCouple satisfies pns.InnerExpander, letting a Solver act as
// either BasicPnsSolver's PN² inner search or a group.ParallelGroup
// worker, both of which only know about the "expand this couple within
// a budget" capability.
func (s *Solver) ExpandCouple(c nimber.Couple, maxIterations uint64) pns.ExpansionInfo {
	return s.Solve(c, maxIterations)
}

func childExpansions(node *pns.Node) []pns.ExpandedChild {
	out := make([]pns.ExpandedChild, len(node.Children))
	for i, c := range node.Children {
		out[i] = pns.ExpandedChild{Couple: c.Couple, PN: c.Info.PN}
	}
	return out
}

// search is the DFPN recursion of §4.8: expand, update, then repeatedly
// descend into the MPN under derived thresholds while both the
// threshold predicate holds and the iteration budget remains; on
// return, persist progress and close the node.
func (s *Solver) search(node *pns.Node, th Thresholds) {
	node.Info.Iterations++
	node.Expand(s.DB, s.Estimator)
	node.Update(s.DB, s.Estimator)

	for th.HoldsFor(node.Info.PN) && s.iterations < s.MaxIterations && !s.isTerminated() {
		mpnIdx, runnerUpIdx, ok := node.GetMpnIdx(s.LandSwitching, s.RNG)
		if !ok {
			break
		}
		child := &node.Children[mpnIdx]
		childThresholds := s.deriveChildThresholds(node, th, mpnIdx, runnerUpIdx)

		childNode := &pns.Node{State: child.Couple, Info: child.Info}
		s.search(childNode, childThresholds)
		child.Info = childNode.Info

		node.Update(s.DB, s.Estimator)
		s.iterations++
		s.maybeBackup(node.State)
	}

	s.Stored.Insert(node.State, ttable.StoredNodeInfo{PN: node.Info.PN, Iterations: node.Info.Iterations})
	if node.Info.PN.IsLoss() && !node.IsMultiLand() {
		s.DB.Insert(node.State.Position.Compact(), node.State.Nim)
	}
	node.Close()
}

func (s *Solver) deriveChildThresholds(node *pns.Node, th Thresholds, mpnIdx, runnerUpIdx int) Thresholds {
	isMultiLand := node.IsMultiLand()
	child := node.Children[mpnIdx]

	if isMultiLand {
		switching := s.switchingFor(isMultiLand, node, runnerUpIdx)
		complexity := pns.ChildComplexity(true, child)
		return DeriveMultiLand(th, len(node.Children) == 1, node.Info.PN.Proof, complexity, switching)
	}

	switching := s.switchingFor(isMultiLand, node, runnerUpIdx)
	return DeriveSingle(th, node.Info.PN.Disproof, child.Info.PN, switching, s.Epsilon)
}

func (s *Solver) switchingFor(isMultiLand bool, node *pns.Node, runnerUpIdx int) pn.PN {
	if runnerUpIdx < 0 {
		return pn.Inf
	}
	runnerUp := node.Children[runnerUpIdx]
	return GetSwitchingThreshold(true, pns.ChildComplexity(isMultiLand, runnerUp))
}

func (s *Solver) maybeBackup(root nimber.Couple) {
	if s.BackupDir == "" || s.BackupInterval <= 0 {
		return
	}
	now := timeNow()
	if now.Sub(s.lastBackup) < s.BackupInterval {
		return
	}
	s.lastBackup = now
	path := fmt.Sprintf("%s/%d_backup.spr", s.BackupDir, root.GetLives()/3)
	if err := s.DB.Store(path, true); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("periodic nimber database backup failed")
	}
}

func (s *Solver) isTerminated() bool {
	return s.Terminate != nil && s.Terminate.Load()
}

// timeNow is indirected so tests can stub it if ever needed; production
// code always uses the wall clock.
var timeNow = time.Now
