package pdfpn

import (
	"github.com/cizektom/spots/dfpn"
	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/pn"
	"github.com/cizektom/spots/pns"
	"github.com/cizektom/spots/ttable"
)

// localSearch runs one worker's private sequential DFPN recursion over
// root, honoring the shared transposition table (and its per-entry
// thread marks for virtual-loss accounting) and draining the worker's
// mailbox after every child return so a proof discovered elsewhere can
// short-circuit the unwind, per §4.9.
func (pd *ParallelDfpn) localSearch(workerID int, root nimber.Couple, budget uint64, rng pns.RNG) pns.ExpansionInfo {
	node := pns.NewNode(root, pd.Estimator)
	var iterations uint64
	pd.search(workerID, []string{}, node, dfpn.RootThresholds(pn.PN(budget)), &iterations, budget, rng)
	return pns.ExpansionInfo{
		PN:           node.Info.PN,
		MergedNimber: node.Info.MergedNimber,
		Children:     childExpansions(node),
	}
}

func childExpansions(node *pns.Node) []pns.ExpandedChild {
	out := make([]pns.ExpandedChild, len(node.Children))
	for i, c := range node.Children {
		out[i] = pns.ExpandedChild{Couple: c.Couple, PN: c.Info.PN}
	}
	return out
}

// search mirrors dfpn.Solver's recursion but adds two PDFPN-specific
// behaviors: child complexity includes a virtual-loss term (the count of
// worker threads currently marked as exploring that child, via the
// shared BucketTable's Mark/Unmark), and after every child return the
// worker drains its mailbox, unwinding immediately to the first
// matching ancestor on its current path rather than continuing to
// finalize intermediate frames normally.
func (pd *ParallelDfpn) search(workerID int, path []string, node *pns.Node, th dfpn.Thresholds, iterations *uint64, budget uint64, rng pns.RNG) (unwindTo string) {
	node.Info.Iterations++
	myKey := node.State.Compact()
	childPath := append(append([]string{}, path...), myKey)

	node.Expand(pd.DB, pd.Estimator)
	node.Update(pd.DB, pd.Estimator)

	pd.Stored.Mark(node.State, workerID)
	defer pd.Stored.Unmark(node.State, workerID)

	for th.HoldsFor(node.Info.PN) && *iterations < budget && !pd.terminate.Load() {
		if target := pd.checkMailbox(workerID, myKey); target != "" {
			if contains(childPath, target) {
				if target != myKey {
					return target
				}
				pd.refreshFromStored(node)
				break
			}
		}

		mpnIdx, runnerUpIdx, ok := pd.getMpnIdxWithVirtualLoss(node)
		if !ok {
			break
		}
		child := &node.Children[mpnIdx]
		childThresholds := pd.deriveChildThresholds(node, th, mpnIdx, runnerUpIdx)

		childNode := &pns.Node{State: child.Couple, Info: child.Info}
		target := pd.search(workerID, childPath, childNode, childThresholds, iterations, budget, rng)
		child.Info = childNode.Info

		node.Update(pd.DB, pd.Estimator)
		*iterations++

		if target != "" {
			if contains(childPath, target) && target != myKey {
				return target
			}
		}
	}

	pd.Stored.Insert(node.State, ttable.StoredNodeInfo{PN: node.Info.PN, Iterations: node.Info.Iterations})
	if node.Info.PN.IsLoss() && !node.IsMultiLand() {
		pd.DB.Insert(node.State.Position.Compact(), node.State.Nim)
	}
	node.Close()
	return ""
}

func contains(path []string, key string) bool {
	for _, p := range path {
		if p == key {
			return true
		}
	}
	return false
}

// checkMailbox drains proved notifications addressed to workerID and
// returns the first one, if any (the caller decides whether it matches
// an ancestor it cares about).
func (pd *ParallelDfpn) checkMailbox(workerID int, _ string) string {
	notified := pd.Mailboxes.Of(workerID).ExtractAll()
	if len(notified) == 0 {
		return ""
	}
	return notified[0]
}

func (pd *ParallelDfpn) refreshFromStored(node *pns.Node) {
	if stored, ok := pd.Stored.Find(node.State); ok {
		node.Info.PN = stored.PN
	}
}

func (pd *ParallelDfpn) getMpnIdxWithVirtualLoss(node *pns.Node) (mpnIdx, runnerUpIdx int, ok bool) {
	views := make([]pns.ComplexityView, len(node.Children))
	for i, c := range node.Children {
		count := len(pd.Stored.MarkedThreadIDs(c.Couple))
		views[i] = virtualLossView{child: c, count: count}
	}
	return pns.GetMpnIdx(node.IsMultiLand(), views, true, pns.FrandRNG{})
}

func (pd *ParallelDfpn) deriveChildThresholds(node *pns.Node, th dfpn.Thresholds, mpnIdx, runnerUpIdx int) dfpn.Thresholds {
	isMultiLand := node.IsMultiLand()
	child := node.Children[mpnIdx]

	switching := pn.Inf
	if runnerUpIdx >= 0 {
		runnerUp := node.Children[runnerUpIdx]
		count := len(pd.Stored.MarkedThreadIDs(runnerUp.Couple))
		switching = dfpn.GetSwitchingThreshold(true, pns.ChildComplexity(isMultiLand, virtualLossView{child: runnerUp, count: count}))
	}

	if isMultiLand {
		count := len(pd.Stored.MarkedThreadIDs(child.Couple))
		complexity := pns.ChildComplexity(true, virtualLossView{child: child, count: count})
		return dfpn.DeriveMultiLand(th, len(node.Children) == 1, node.Info.PN.Proof, complexity, switching)
	}
	return dfpn.DeriveSingle(th, node.Info.PN.Disproof, child.Info.PN, switching, 1)
}
