package pns

import (
	"container/heap"

	"github.com/rs/zerolog"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/pn"
	"github.com/cizektom/spots/ttable"
)

// Handle is a dense integer reference to a tree node, used instead of
// pointers so that parent back-links (§9's "reference-counted parent
// links") are plain slices of handles rather than raw pointers. An arena
// of nodes with handles lets "drop the last reference" be expressed as
// pruneUnreachable's mark-and-sweep instead of explicit destructors.
type Handle int

// NoHandle is the zero-value sentinel for "no such node".
const NoHandle Handle = -1

// ExpandedChild is one child reported by an external expansion (a
// worker's completed DFPN/PDFPN job): the couple it represents and its
// final proof numbers.
type ExpandedChild struct {
	Couple nimber.Couple
	PN     pn.ProofNumbers
}

// ExpansionInfo is PnsNodeExpansionInfo from the data model: the result
// of expanding one node, either locally or by a worker, in a shape that
// crosses the master/worker boundary (data model's CompletedJob minus
// the parent key, which the caller already knows).
type ExpansionInfo struct {
	PN           pn.ProofNumbers
	MergedNimber nimber.Nimber
	Children     []ExpandedChild
}

// treeChild is PnsTree's proxy child: a couple plus the handle of the
// (possibly shared) node it resolves to.
type treeChild struct {
	couple nimber.Couple
	handle Handle
}

func (c treeChild) view(t *Tree) treeChildView { return treeChildView{t, c.handle} }

// TreeNode is a PnsNode augmented with transposition-DAG parent
// back-links: every edge is symmetric, so a child's Parents list always
// contains its parent's handle.
type TreeNode struct {
	State    nimber.Couple
	Info     Info
	Children []treeChild
	Parents  []Handle
	reachable bool
}

func (n *TreeNode) isMultiLand() bool { return n.State.Position.IsMultiLand() }

// Tree is the transposition DAG: nodes keyed by compact couple, with
// best-first MPN selection, heap-ordered ancestor propagation, and
// mark-and-sweep pruning from the root.
type Tree struct {
	nodes     []TreeNode
	byKey     map[string]Handle
	root      Handle
	estimator nimber.ProofNumberEstimator
}

// NewTree creates an empty tree that seeds freshly created nodes' proof
// numbers from estimator.
func NewTree(estimator nimber.ProofNumberEstimator) *Tree {
	return &Tree{byKey: make(map[string]Handle), root: NoHandle, estimator: estimator}
}

func (t *Tree) at(h Handle) *TreeNode { return &t.nodes[h] }

// Root returns the tree's root handle, or NoHandle if unset.
func (t *Tree) Root() Handle { return t.root }

// Size reports the number of distinct transposition-DAG entries.
func (t *Tree) Size() int { return len(t.nodes) }

// Node exposes a node's state for callers (e.g. the manager) that need
// to read its couple/info without mutating the tree structure.
func (t *Tree) Node(h Handle) *TreeNode { return t.at(h) }

// ChildHandles returns the handles of h's current children, in order,
// used by callers (ParallelDfpn's sync tree) that need to track
// per-handle metadata such as ply depth after an Expand call.
func (t *Tree) ChildHandles(h Handle) []Handle {
	node := t.at(h)
	out := make([]Handle, len(node.Children))
	for i, c := range node.Children {
		out[i] = c.handle
	}
	return out
}

// CompactOf returns the compact couple string for h, a convenience for
// callers that key side tables (e.g. ply depth) by handle but need to
// cross-reference against wire-format couple strings.
func (t *Tree) CompactOf(h Handle) string { return t.at(h).State.Compact() }

func (t *Tree) seedInfo(c nimber.Couple, stored *ttable.PnsDatabase) Info {
	info := Info{}
	if stored != nil {
		if found, ok := stored.Find(c); ok {
			info.PN = found.PN
			info.Iterations = found.Iterations
			return info
		}
	}
	proof, disproof := t.estimator.Estimate(c)
	info.PN = pn.ProofNumbers{Proof: pn.PN(proof), Disproof: pn.PN(disproof)}
	return info
}

// getOrCreate returns the existing node for c's compact key, or creates
// one, optionally seeding it from a transposition-table hit.
func (t *Tree) getOrCreate(c nimber.Couple, stored *ttable.PnsDatabase) Handle {
	key := c.Compact()
	if h, ok := t.byKey[key]; ok {
		return h
	}
	t.nodes = append(t.nodes, TreeNode{State: c, Info: t.seedInfo(c, stored)})
	h := Handle(len(t.nodes) - 1)
	t.byKey[key] = h
	return h
}

func addParent(t *Tree, child, parent Handle) {
	cn := t.at(child)
	for _, p := range cn.Parents {
		if p == parent {
			return
		}
	}
	cn.Parents = append(cn.Parents, parent)
}

// SetRoot creates (or reuses) the root node for couple.
func (t *Tree) SetRoot(c nimber.Couple, stored *ttable.PnsDatabase) Handle {
	t.root = t.getOrCreate(c, stored)
	return t.root
}

// GetMpn descends from the root following GetMpnIdx at every level,
// incrementing each visited node's iteration counter, until it reaches
// an unexpanded, non-proved, non-locked leaf.
func (t *Tree) GetMpn(landSwitching bool, rng RNG, logger *zerolog.Logger) (Handle, bool) {
	if t.root == NoHandle {
		return NoHandle, false
	}
	cur := t.root
	for {
		node := t.at(cur)
		node.Info.Iterations++
		if node.Info.PN.IsProved() || node.Info.Locked {
			return NoHandle, false
		}
		if !node.Info.Expanded {
			return cur, true
		}
		views := make([]ComplexityView, len(node.Children))
		for i, c := range node.Children {
			views[i] = c.view(t)
		}
		idx, _, ok := GetMpnIdx(node.isMultiLand(), views, landSwitching, rng)
		if !ok {
			return NoHandle, false
		}
		if logger != nil {
			logger.Debug().Str("couple", node.State.Compact()).Int("children", len(node.Children)).Msg("descending mpn")
		}
		cur = node.Children[idx].handle
	}
}

// ExpandLocal materializes h's children using only the nimber database
// (BasicPnsSolver's non-PN² expansion path): multi-subgame nodes get one
// child per independent subgame; single-subgame nodes get
// Couple.ComputeChildren's result, reusing or creating tree nodes for
// each (so transpositions are shared across parents).
func (t *Tree) ExpandLocal(h Handle, db *nimberdb.Database, stored *ttable.PnsDatabase) {
	node := t.at(h)
	if node.Info.Expanded {
		return
	}
	if node.isMultiLand() {
		subgames := node.State.Position.GetSubgames()
		nimber.SortGames(subgames)
		children := make([]treeChild, 0, len(subgames))
		for _, sg := range subgames {
			c := nimber.Couple{Position: sg, Nim: nimber.Loss}
			ch := t.getOrCreate(c, stored)
			addParent(t, ch, h)
			children = append(children, treeChild{couple: c, handle: ch})
		}
		t.at(h).Children = children
		t.at(h).Info.Expanded = true
		return
	}

	childCouples, outcome, proved := node.State.ComputeChildren(db)
	if proved {
		t.setOutcome(h, outcome)
		return
	}
	children := make([]treeChild, 0, len(childCouples))
	for _, c := range childCouples {
		ch := t.getOrCreate(c, stored)
		addParent(t, ch, h)
		children = append(children, treeChild{couple: c, handle: ch})
	}
	t.at(h).Children = children
	t.at(h).Info.Expanded = true
}

// Expand materializes h's children from an externally-produced
// ExpansionInfo (a worker's completed job): each reported child becomes
// an existing tree node if present, else a new one initialized with the
// reported proof numbers. h's mergedNimber is copied from info.
func (t *Tree) Expand(h Handle, info ExpansionInfo, stored *ttable.PnsDatabase) {
	node := t.at(h)
	node.Info.MergedNimber = info.MergedNimber
	children := make([]treeChild, 0, len(info.Children))
	for _, rc := range info.Children {
		ch, existed := t.byKey[rc.Couple.Compact()]
		if !existed {
			ch = t.getOrCreate(rc.Couple, stored)
			t.at(ch).Info.PN = rc.PN
		}
		addParent(t, ch, h)
		children = append(children, treeChild{couple: rc.Couple, handle: ch})
	}
	node = t.at(h)
	node.Children = children
	node.Info.Expanded = true
	node.Info.PN = info.PN
}

// AllHandles returns every handle currently in the tree, used by the
// manager to scan for nodes matching a reported position when
// integrating externally-discovered nimbers.
func (t *Tree) AllHandles() []Handle {
	out := make([]Handle, len(t.nodes))
	for i := range t.nodes {
		out[i] = Handle(i)
	}
	return out
}

// ForceOutcome proves h directly to outcome, bypassing the normal
// expand/update cycle. Used by the manager's addNimbers, which learns a
// position's nimber from a worker report rather than from expansion.
func (t *Tree) ForceOutcome(h Handle, outcome pn.Outcome) {
	t.setOutcome(h, outcome)
}

func (t *Tree) setOutcome(h Handle, outcome pn.Outcome) {
	node := t.at(h)
	node.Children = nil
	node.Info.Expanded = false
	if outcome == pn.Win {
		node.Info.PN = pn.WinProofNumbers()
	} else {
		node.Info.PN = pn.LossProofNumbers()
	}
}

// Update runs the PnsNode update rule on h (two-phase land collapse +
// proof-number recompute). When h becomes a proved Loss and is a
// single-subgame node, its nim is written to db (a discovery).
func (t *Tree) Update(h Handle, db *nimberdb.Database) {
	node := t.at(h)
	if !node.Info.Expanded {
		return
	}
	if node.isMultiLand() {
		t.updateMultiLand(h, db)
	} else {
		t.updateSingleLand(h)
	}
	node = t.at(h)
	node.Info.Locked = allHandlesLocked(t, node.Children)

	if node.Info.PN.IsLoss() && !node.isMultiLand() {
		db.Insert(node.State.Position.Compact(), node.State.Nim)
	}
}

func allHandlesLocked(t *Tree, children []treeChild) bool {
	if len(children) == 0 {
		return false
	}
	locked := make([]bool, len(children))
	for i, c := range children {
		locked[i] = t.at(c.handle).Info.Locked
	}
	return AllLocked(locked)
}

func (t *Tree) updateMultiLand(h Handle, db *nimberdb.Database) {
	node := t.at(h)
	landChildren := make([]LandChild, len(node.Children))
	for i, c := range node.Children {
		landChildren[i] = LandChild{Couple: c.couple, PN: t.at(c.handle).Info.PN}
	}
	survivors, survivorIdx, merged, proved, outcome := UpdateLandChildren(node.Info.MergedNimber, landChildren, db, t.estimator)
	node.Info.MergedNimber = merged
	if proved {
		t.setOutcome(h, outcome)
		return
	}
	out := make([]treeChild, len(survivors))
	for i, s := range survivors {
		orig := node.Children[survivorIdx[i]]
		if !s.Couple.Equal(orig.couple) {
			nh := t.getOrCreate(s.Couple, nil)
			addParent(t, nh, h)
			out[i] = treeChild{couple: s.Couple, handle: nh}
			continue
		}
		out[i] = orig
	}
	node = t.at(h)
	node.Children = out

	views := make([]LandChild, len(out))
	for i, c := range out {
		views[i] = LandChild{Couple: c.couple, PN: t.at(c.handle).Info.PN}
	}
	newPN, err := ComputeMultiLandProofNumbers(views, node.Info.Overestimated)
	if err == nil {
		node.Info.PN = newPN
	}
}

func (t *Tree) updateSingleLand(h Handle) {
	node := t.at(h)
	plain := make([]PlainChild, len(node.Children))
	for i, c := range node.Children {
		cinfo := t.at(c.handle).Info
		plain[i] = PlainChild{PN: cinfo.PN, Locked: cinfo.Locked}
	}
	survivors, survivorIdx, proved, outcome := UpdateSingleLandChildren(plain)
	if proved {
		t.setOutcome(h, outcome)
		return
	}
	out := make([]treeChild, len(survivors))
	for i := range survivors {
		out[i] = node.Children[survivorIdx[i]]
	}
	node.Children = out

	newPN, err := ComputeSingleLandProofNumbers(survivors, node.Info.Locked, node.Info.Overestimated)
	if err == nil {
		node.Info.PN = newPN
	}
}

// pathItem orders the propagation heap "deeper first": greater lives,
// then (tie) greater nim, matching §4.6's "deeper first comparator".
type pathItem struct {
	h     Handle
	lives uint32
	nim   nimber.Nimber
}

type pathHeap []pathItem

func (h pathHeap) Len() int { return len(h) }
func (h pathHeap) Less(i, j int) bool {
	if h[i].lives != h[j].lives {
		return h[i].lives > h[j].lives
	}
	return h[i].nim > h[j].nim
}
func (h pathHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x interface{}) { *h = append(*h, x.(pathItem)) }
func (h *pathHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// UpdatePaths runs ancestor propagation starting from h: a priority
// queue ordered deeper-first processes each dirtied node, running Update
// on it; if its (proof, disproof, locked) triple changed, or it is the
// original MPN h, its parents are enqueued (de-duplicated via a
// visited-set on compact couples).
func (t *Tree) UpdatePaths(h Handle, db *nimberdb.Database) {
	pq := &pathHeap{}
	heap.Init(pq)
	visited := make(map[Handle]bool)

	push := func(handle Handle) {
		if visited[handle] {
			return
		}
		visited[handle] = true
		n := t.at(handle)
		heap.Push(pq, pathItem{h: handle, lives: n.State.GetLives(), nim: n.State.Nim})
	}
	push(h)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pathItem)
		node := t.at(item.h)
		before := node.Info.PN
		beforeLocked := node.Info.Locked

		t.Update(item.h, db)

		node = t.at(item.h)
		changed := node.Info.PN != before || node.Info.Locked != beforeLocked
		if changed || item.h == h {
			for _, p := range node.Parents {
				push(p)
			}
		}
	}
}

// PruneUnreachable marks every node reachable from the root via BFS and
// erases every unflagged entry, returning the count removed.
func (t *Tree) PruneUnreachable() int {
	if t.root == NoHandle {
		return 0
	}
	for i := range t.nodes {
		t.nodes[i].reachable = false
	}
	queue := []Handle{t.root}
	t.nodes[t.root].reachable = true
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		for _, c := range t.at(h).Children {
			if !t.at(c.handle).reachable {
				t.at(c.handle).reachable = true
				queue = append(queue, c.handle)
			}
		}
	}

	removed := 0
	keep := make(map[string]Handle, len(t.byKey))
	remap := make(map[Handle]Handle, len(t.nodes))
	newNodes := make([]TreeNode, 0, len(t.nodes))
	for key, h := range t.byKey {
		if t.at(h).reachable {
			newNodes = append(newNodes, t.nodes[h])
			remap[h] = Handle(len(newNodes) - 1)
			keep[key] = Handle(len(newNodes) - 1)
		} else {
			removed++
		}
	}
	for i := range newNodes {
		newChildren := make([]treeChild, 0, len(newNodes[i].Children))
		for _, c := range newNodes[i].Children {
			if nh, ok := remap[c.handle]; ok {
				newChildren = append(newChildren, treeChild{couple: c.couple, handle: nh})
			}
		}
		newNodes[i].Children = newChildren
		newParents := make([]Handle, 0, len(newNodes[i].Parents))
		for _, p := range newNodes[i].Parents {
			if nh, ok := remap[p]; ok {
				newParents = append(newParents, nh)
			}
		}
		newNodes[i].Parents = newParents
	}
	t.nodes = newNodes
	t.byKey = keep
	if nh, ok := remap[t.root]; ok {
		t.root = nh
	} else {
		t.root = NoHandle
	}
	return removed
}

// UpdatePnsDatabase snapshots every proved or expanded node's
// (pn, iterations) into the transposition table.
func (t *Tree) UpdatePnsDatabase(pnsDb *ttable.PnsDatabase) {
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.Info.PN.IsProved() || n.Info.Expanded {
			pnsDb.Insert(n.State, ttable.StoredNodeInfo{PN: n.Info.PN, Iterations: n.Info.Iterations})
		}
	}
}

type treeChildView struct {
	t *Tree
	h Handle
}

func (v treeChildView) ProofNumbers() pn.ProofNumbers { return v.t.at(v.h).Info.PN }
func (v treeChildView) Locked() bool                  { return v.t.at(v.h).Info.Locked }
func (v treeChildView) WorkingThreads() int           { return 0 }
