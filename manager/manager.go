// Package manager implements PnsTreeManager (§4.10): the master
// best-first tree that hands out locked MPN couples as jobs, accepts
// workers' expansion results, and integrates nim discoveries reported
// from elsewhere (a sibling worker, a remote group) into every tree
// node they affect.
package manager

import (
	"github.com/rs/zerolog/log"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/pn"
	"github.com/cizektom/spots/pns"
)

// PnsTreeManager owns the master tree and its shared nimber database.
// It runs on a single control thread: getJob/submitJob/closeJob/
// addNimbers are not safe for concurrent use, matching §5's "accessed
// only by the master process's single control thread" note.
type PnsTreeManager struct {
	Tree *pns.Tree
	DB   *nimberdb.Database

	root pns.Handle
}

// New builds a manager rooted at root, with a fresh tree seeded from
// estimator and sharing db.
func New(root nimber.Couple, db *nimberdb.Database, estimator nimber.ProofNumberEstimator) *PnsTreeManager {
	t := pns.NewTree(estimator)
	rh := t.SetRoot(root, nil)
	return &PnsTreeManager{Tree: t, DB: db, root: rh}
}

// Root returns the master tree's root handle.
func (m *PnsTreeManager) Root() pns.Handle { return m.root }

// Proved reports whether the root is already proved.
func (m *PnsTreeManager) Proved() bool {
	return m.Tree.Node(m.root).Info.PN.IsProved()
}

// GetJob picks the current most-proving node via landSwitching=true,
// locks it so no other job is issued against it, propagates the lock
// up the tree, and returns it. ok is false when every reachable node is
// already proved or locked.
func (m *PnsTreeManager) GetJob() (pns.Handle, bool) {
	h, ok := m.Tree.GetMpn(true, nil, nil)
	if !ok {
		return pns.NoHandle, false
	}
	node := m.Tree.Node(h)
	node.Info.Locked = true
	m.Tree.UpdatePaths(h, m.DB)
	return h, true
}

// UpdateJob accepts a proof a worker reports directly for h (a
// cycle-induced re-assignment where the node was proved by a sibling
// path before the worker's own job finished) without an expansion.
// newPN must be proved.
func (m *PnsTreeManager) UpdateJob(h pns.Handle, newPN pn.ProofNumbers) {
	if !newPN.IsProved() {
		log.Warn().Str("couple", m.Tree.CompactOf(h)).Msg("updateJob called with an unproved proof number pair")
		return
	}
	node := m.Tree.Node(h)
	node.Info.PN = newPN
	m.Tree.UpdatePaths(h, m.DB)
}

// SubmitJob materializes a worker's completed ExpansionInfo onto h,
// increments its iteration count, unlocks it, and propagates the
// change to the root.
func (m *PnsTreeManager) SubmitJob(h pns.Handle, info pns.ExpansionInfo) {
	m.Tree.Expand(h, info, nil)
	node := m.Tree.Node(h)
	node.Info.Iterations++
	node.Info.Locked = false
	m.Tree.UpdatePaths(h, m.DB)
}

// CloseJob backs out of an assignment that could not be completed: it
// unlocks h and propagates, leaving it eligible for GetJob again.
func (m *PnsTreeManager) CloseJob(h pns.Handle) {
	node := m.Tree.Node(h)
	node.Info.Locked = false
	m.Tree.UpdatePaths(h, m.DB)
}

// AddNimbers integrates externally-reported nimbers (from a sibling
// worker or a remote group via transport) into the master tree: for
// every reported (compactPosition, nim) pair not already known, every
// tree node whose position compacts to compactPosition is proved — Win
// if nim XOR the node's own couple-nim is non-zero, Loss otherwise —
// and the change is propagated. The new entries are then bulk-inserted
// into the nim database, and the count of genuine additions is
// returned.
func (m *PnsTreeManager) AddNimbers(reported map[string]nimber.Nimber) int {
	fresh := make(map[string]nimber.Nimber, len(reported))
	for compact, n := range reported {
		if _, known := m.DB.Get(compact); known {
			continue
		}
		fresh[compact] = n
	}
	if len(fresh) == 0 {
		return 0
	}

	for _, h := range m.Tree.AllHandles() {
		node := m.Tree.Node(h)
		n, ok := fresh[node.State.Position.Compact()]
		if !ok {
			continue
		}
		remainder := nimber.Merge(n, node.State.Nim)
		outcome := pn.Loss
		if remainder.IsWin() {
			outcome = pn.Win
		}
		m.Tree.ForceOutcome(h, outcome)
		m.Tree.UpdatePaths(h, m.DB)
	}

	added := m.DB.AddNimbers(fresh)
	log.Info().Int("reported", len(reported)).Int("added", added).Msg("integrated nimber report into master tree")
	return added
}
