package pns

import (
	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/pn"
)

// Info is a node's mutable search state: its current proof numbers, how
// many times it has been visited, whether it (or, transitively, all of
// its children) is currently locked by another worker, whether it has
// been expanded, and — for a multi-subgame node — the nim value already
// absorbed out of resolved subgames.
type Info struct {
	PN           pn.ProofNumbers
	Iterations   uint64
	Locked       bool
	Expanded     bool
	Overestimated bool
	MergedNimber nimber.Nimber
}

// Child is one owning-path child as used by DfpnSolver/ParallelDfpn: the
// couple it represents plus whatever Info was seeded or inherited for it.
// Unlike PnsTree's children, these are not shared across parents.
type Child struct {
	Couple nimber.Couple
	Info   Info
}

func (c Child) ProofNumbers() pn.ProofNumbers { return c.Info.PN }
func (c Child) Locked() bool                  { return c.Info.Locked }
func (c Child) WorkingThreads() int            { return 0 }

// Node is the single-path, owning PnsNode used by the sequential DFPN
// recursion: it carries a couple, its Info, and its current children
// (materialized only while expanded).
type Node struct {
	State    nimber.Couple
	Info     Info
	Children []Child
}

// NewNode builds an unexpanded node, seeding its proof numbers from
// estimator.
func NewNode(c nimber.Couple, estimator nimber.ProofNumberEstimator) *Node {
	proof, disproof := estimator.Estimate(c)
	return &Node{
		State: c,
		Info: Info{
			PN: pn.ProofNumbers{Proof: pn.PN(proof), Disproof: pn.PN(disproof)},
		},
	}
}

// IsMultiLand reports whether this node's couple position decomposes
// into independent subgames.
func (n *Node) IsMultiLand() bool {
	return n.State.Position.IsMultiLand()
}

// Expand materializes n's children exactly once. For a multi-subgame
// node, one child is built per independent subgame (nim reset to 0),
// sorted by the default game comparer. For a single-subgame node,
// children come from Couple.ComputeChildren; a definite outcome proves
// the node in place and leaves it unexpanded.
func (n *Node) Expand(db nimber.NimberLookup, estimator nimber.ProofNumberEstimator) {
	if n.Info.Expanded {
		return
	}
	if n.IsMultiLand() {
		subgames := n.State.Position.GetSubgames()
		nimber.SortGames(subgames)
		children := make([]Child, 0, len(subgames))
		for _, sg := range subgames {
			c := nimber.Couple{Position: sg, Nim: nimber.Loss}
			children = append(children, Child{Couple: c, Info: infoFromEstimate(c, estimator)})
		}
		n.Children = children
		n.Info.Expanded = true
		return
	}

	children, outcome, proved := n.State.ComputeChildren(db)
	if proved {
		n.setOutcome(outcome)
		return
	}
	out := make([]Child, 0, len(children))
	for _, c := range children {
		out = append(out, Child{Couple: c, Info: infoFromEstimate(c, estimator)})
	}
	n.Children = out
	n.Info.Expanded = true
}

func infoFromEstimate(c nimber.Couple, estimator nimber.ProofNumberEstimator) Info {
	proof, disproof := estimator.Estimate(c)
	return Info{PN: pn.ProofNumbers{Proof: pn.PN(proof), Disproof: pn.PN(disproof)}}
}

// Close discards n's children and resets it to the unexpanded state,
// used on DFPN backtrack. Idempotent.
func (n *Node) Close() {
	n.Children = nil
	n.Info.Expanded = false
	n.Info.MergedNimber = nimber.Loss
}

// SetToWin closes n and fixes its proof numbers to the canonical win pair.
func (n *Node) SetToWin() {
	n.Close()
	n.Info.PN = pn.WinProofNumbers()
}

// SetToLoss closes n and fixes its proof numbers to the canonical loss pair.
func (n *Node) SetToLoss() {
	n.Close()
	n.Info.PN = pn.LossProofNumbers()
}

func (n *Node) setOutcome(outcome pn.Outcome) {
	switch outcome {
	case pn.Win:
		n.SetToWin()
	default:
		n.SetToLoss()
	}
}

// Update runs the two-phase update rule (§4.5): first collapsing
// children per the land-merge rules, then recomputing n's own proof
// numbers from the survivors.
func (n *Node) Update(db nimber.NimberLookup, estimator nimber.ProofNumberEstimator) {
	if !n.Info.Expanded {
		return
	}
	if n.IsMultiLand() {
		n.updateMultiLand(db, estimator)
	} else {
		n.updateSingleLand()
	}
	n.Info.Locked = allChildrenLocked(n.Children)
}

func (n *Node) updateMultiLand(db nimber.NimberLookup, estimator nimber.ProofNumberEstimator) {
	landChildren := make([]LandChild, len(n.Children))
	for i, c := range n.Children {
		landChildren[i] = LandChild{Couple: c.Couple, PN: c.Info.PN}
	}
	survivors, survivorIdx, merged, proved, outcome := UpdateLandChildren(n.Info.MergedNimber, landChildren, db, estimator)
	n.Info.MergedNimber = merged
	if proved {
		n.setOutcome(outcome)
		return
	}
	out := make([]Child, len(survivors))
	for i, s := range survivors {
		childInfo := n.Children[survivorIdx[i]].Info
		childInfo.PN = s.PN
		out[i] = Child{Couple: s.Couple, Info: childInfo}
	}
	n.Children = out

	views := make([]LandChild, len(out))
	for i, c := range out {
		views[i] = LandChild{Couple: c.Couple, PN: c.Info.PN}
	}
	newPN, err := ComputeMultiLandProofNumbers(views, n.Info.Overestimated)
	if err == nil {
		n.Info.PN = newPN
	}
}

func (n *Node) updateSingleLand() {
	plain := make([]PlainChild, len(n.Children))
	for i, c := range n.Children {
		plain[i] = PlainChild{PN: c.Info.PN, Locked: c.Info.Locked}
	}
	survivors, survivorIdx, proved, outcome := UpdateSingleLandChildren(plain)
	if proved {
		n.setOutcome(outcome)
		return
	}
	out := make([]Child, len(survivors))
	for i := range survivors {
		out[i] = n.Children[survivorIdx[i]]
	}
	n.Children = out

	newPN, err := ComputeSingleLandProofNumbers(survivors, n.Info.Locked, n.Info.Overestimated)
	if err == nil {
		n.Info.PN = newPN
	}
}

func allChildrenLocked(children []Child) bool {
	if len(children) == 0 {
		return false
	}
	locks := make([]bool, len(children))
	for i, c := range children {
		locks[i] = c.Info.Locked
	}
	return AllLocked(locks)
}

// GetMpnIdx selects n's most-proving child and runner-up, following
// GetMpnIdx's general rule specialized to this node's land-ness.
func (n *Node) GetMpnIdx(landSwitching bool, rng RNG) (mpnIdx, runnerUpIdx int, ok bool) {
	views := make([]ComplexityView, len(n.Children))
	for i, c := range n.Children {
		views[i] = c
	}
	return GetMpnIdx(n.IsMultiLand(), views, landSwitching, rng)
}
