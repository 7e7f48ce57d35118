package pdfpn

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cizektom/spots/dfpn"
	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/pn"
	"github.com/cizektom/spots/pns"
	"github.com/cizektom/spots/ttable"
)

// ParallelDfpn is the multi-threaded PDFPN extension of §4.9. Mode is
// selected by BranchingDepth: 0 runs Kaneko-style independent restarts
// sharing only the transposition table and nimber database; >0 keeps a
// small shared sync tree over the first BranchingDepth plies and
// dispatches each leaf's subtree to a worker's local sequential DFPN.
type ParallelDfpn struct {
	DB        *nimberdb.Database
	Stored    *ttable.PnsDatabase
	Estimator nimber.ProofNumberEstimator

	BranchingDepth int
	Mailboxes      *Set

	mu        sync.Mutex
	cond      *sync.Cond
	tree      *pns.Tree
	depth     map[pns.Handle]int
	terminate atomic.Bool
}

// New builds a ParallelDfpn sharing db/stored with its caller.
func New(db *nimberdb.Database, stored *ttable.PnsDatabase, estimator nimber.ProofNumberEstimator, branchingDepth int) *ParallelDfpn {
	pd := &ParallelDfpn{
		DB:             db,
		Stored:         stored,
		Estimator:      estimator,
		BranchingDepth: branchingDepth,
	}
	pd.cond = sync.NewCond(&pd.mu)
	return pd
}

// Solve runs workers cooperating PDFPN threads against root, each
// allowed up to maxIterationsPerWorker local DFPN steps per dispatched
// subtree, until root is proved.
func (pd *ParallelDfpn) Solve(root nimber.Couple, workers int, maxIterationsPerWorker uint64) pns.ExpansionInfo {
	pd.Mailboxes = NewSet(workers)
	pd.terminate.Store(false)

	if pd.BranchingDepth == 0 {
		return pd.solveKaneko(root, workers, maxIterationsPerWorker)
	}
	return pd.solveSyncTree(root, workers, maxIterationsPerWorker)
}

// solveKaneko runs `workers` fully-independent DFPN searches from the
// same root, all sharing DB and Stored. The first to finish sets the
// terminate flag; the rest back off on their next threshold check.
func (pd *ParallelDfpn) solveKaneko(root nimber.Couple, workers int, maxIterations uint64) pns.ExpansionInfo {
	results := make(chan pns.ExpansionInfo, workers)
	var eg errgroup.Group
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			solver := dfpn.NewSolver(pd.DB, pd.Stored, pd.Estimator)
			solver.Terminate = &pd.terminate
			solver.RNG = pns.FrandRNG{}
			info := solver.Solve(root, maxIterations)
			pd.terminate.Store(true)
			results <- info
			return nil
		})
	}
	first := <-results
	eg.Wait()
	close(results)

	log.Info().Int("workers", workers).Str("root", root.Compact()).Msg("kaneko pdfpn finished")
	return first
}

// solveSyncTree runs the branchingDepth>0 mode of §4.9: a shared pns.Tree
// covers the first BranchingDepth plies; each worker repeatedly claims a
// locked MPN leaf, releases the global lock, runs a local DFPN search on
// a private copy of that subtree's state, then writes the result back.
func (pd *ParallelDfpn) solveSyncTree(root nimber.Couple, workers int, maxIterationsPerWorker uint64) pns.ExpansionInfo {
	pd.initSyncTree(root)

	var eg errgroup.Group
	for i := 0; i < workers; i++ {
		id := i
		eg.Go(func() error {
			pd.workerLoop(id, maxIterationsPerWorker)
			return nil
		})
	}
	eg.Wait()

	pd.mu.Lock()
	defer pd.mu.Unlock()
	rootNode := pd.tree.Node(pd.tree.Root())
	children := make([]pns.ExpandedChild, 0, len(pd.tree.ChildHandles(pd.tree.Root())))
	for _, h := range pd.tree.ChildHandles(pd.tree.Root()) {
		cn := pd.tree.Node(h)
		children = append(children, pns.ExpandedChild{Couple: cn.State, PN: cn.Info.PN})
	}
	log.Info().Int("workers", workers).Int("sync-tree-size", pd.tree.Size()).Str("root", root.Compact()).Msg("sync-tree pdfpn finished")
	return pns.ExpansionInfo{PN: rootNode.Info.PN, MergedNimber: rootNode.Info.MergedNimber, Children: children}
}

// initSyncTree seeds the sync tree from the transposition table, then
// expands and updates the root, matching §4.9's initSyncTree.
func (pd *ParallelDfpn) initSyncTree(root nimber.Couple) {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	pd.tree = pns.NewTree(pd.Estimator)
	pd.depth = make(map[pns.Handle]int)
	rh := pd.tree.SetRoot(root, pd.Stored)
	pd.depth[rh] = 0
	pd.tree.ExpandLocal(rh, pd.DB, pd.Stored)
	for _, h := range pd.tree.ChildHandles(rh) {
		pd.depth[h] = 1
	}
	pd.tree.Update(rh, pd.DB)
}

// workerLoop is one PDFPN worker's main loop: claim a locked MPN leaf
// from the sync tree, run a local DFPN search outside the lock, then
// fold the result back in.
func (pd *ParallelDfpn) workerLoop(id int, budget uint64) {
	rng := pns.FrandRNG{}
	for {
		if pd.terminate.Load() {
			return
		}
		mpn, state, depth, ok := pd.claimLeaf()
		if !ok {
			if pd.terminate.Load() {
				return
			}
			continue
		}

		info := pd.localSearch(id, state, budget, rng)

		pd.foldBack(mpn, depth, info)
	}
}

// claimLeaf waits for the sync tree's root to unlock (or proof / global
// terminate), then descends to an MPN leaf, locks it, and returns a
// private copy of its state for the caller to search outside the lock.
func (pd *ParallelDfpn) claimLeaf() (h pns.Handle, state nimber.Couple, depth int, ok bool) {
	pd.mu.Lock()
	defer pd.mu.Unlock()

	for {
		root := pd.tree.Root()
		rootNode := pd.tree.Node(root)
		if rootNode.Info.PN.IsProved() {
			pd.terminate.Store(true)
			pd.cond.Broadcast()
			return pns.NoHandle, nimber.Couple{}, 0, false
		}
		if pd.terminate.Load() {
			return pns.NoHandle, nimber.Couple{}, 0, false
		}
		if !rootNode.Info.Locked {
			break
		}
		pd.cond.Wait()
	}

	mpn, found := pd.tree.GetMpn(true, nil, nil)
	if !found {
		return pns.NoHandle, nimber.Couple{}, 0, false
	}
	node := pd.tree.Node(mpn)
	node.Info.Locked = true
	pd.tree.UpdatePaths(mpn, pd.DB)

	return mpn, node.State, pd.depth[mpn], true
}

// foldBack writes a completed local search's ExpansionInfo back into
// the sync tree: if the node is still shallower than BranchingDepth, it
// is expanded so the sync tree grows; otherwise only its final proof
// numbers are recorded, and the search result's own subtree stays local
// to the worker that computed it.
func (pd *ParallelDfpn) foldBack(h pns.Handle, depth int, info pns.ExpansionInfo) {
	pd.mu.Lock()
	defer pd.mu.Unlock()

	node := pd.tree.Node(h)
	node.Info.Locked = false
	before := node.Info.PN

	if depth < pd.BranchingDepth && len(info.Children) > 0 {
		pd.tree.Expand(h, info, pd.Stored)
		for _, ch := range pd.tree.ChildHandles(h) {
			pd.depth[ch] = depth + 1
		}
	} else {
		node.Info.PN = info.PN
		node.Info.MergedNimber = info.MergedNimber
	}

	pd.tree.UpdatePaths(h, pd.DB)
	after := pd.tree.Node(h).Info.PN

	if after != before && after.IsProved() {
		ids := pd.Stored.MarkedThreadIDs(node.State)
		pd.Mailboxes.NotifyThreads(ids, node.State.Compact())
	}

	if pd.tree.Node(pd.tree.Root()).Info.PN.IsProved() {
		pd.terminate.Store(true)
	}
	pd.cond.Broadcast()
}

// virtualLossView augments a pns.Child with the live count of worker
// threads currently marked as exploring it, for the child-complexity
// rule of §4.9.
type virtualLossView struct {
	child pns.Child
	count int
}

func (v virtualLossView) ProofNumbers() pn.ProofNumbers { return v.child.ProofNumbers() }
func (v virtualLossView) Locked() bool                  { return v.child.Locked() }
func (v virtualLossView) WorkingThreads() int           { return v.count }
