package pns

import (
	"github.com/rs/zerolog/log"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/ttable"
)

// InnerExpander lets BasicPnsSolver run in PN² mode: instead of
// expanding the chosen MPN purely from the nimber database, it
// delegates a bounded inner search (a DFPN or PDFPN solve) and ingests
// the resulting ExpansionInfo. A nil InnerExpander makes the solver
// plain PNS.
type InnerExpander interface {
	ExpandCouple(c nimber.Couple, maxIterations uint64) ExpansionInfo
}

// BasicPnsSolver is the sequential, in-memory-tree proof-number search
// described in §4.7: repeatedly pick the most-proving node, expand it,
// and propagate the change to the root, until the root is proved or the
// iteration budget is exhausted.
type BasicPnsSolver struct {
	Tree          *Tree
	DB            *nimberdb.Database
	Stored        *ttable.PnsDatabase
	Inner         InnerExpander
	InnerBudget   uint64
	LandSwitching bool
	RNG           RNG
}

// NewBasicPnsSolver builds a solver over a fresh tree rooted at nothing
// yet; call Solve to root it and search.
func NewBasicPnsSolver(db *nimberdb.Database, stored *ttable.PnsDatabase, estimator nimber.ProofNumberEstimator) *BasicPnsSolver {
	return &BasicPnsSolver{
		Tree:          NewTree(estimator),
		DB:            db,
		Stored:        stored,
		LandSwitching: true,
	}
}

// Solve roots the tree at root and iterates the PNS loop until the root
// is proved or maxIterations is reached, returning the root's final
// ExpansionInfo.
func (s *BasicPnsSolver) Solve(root nimber.Couple, maxIterations uint64) ExpansionInfo {
	rh := s.Tree.SetRoot(root, s.Stored)

	var iterations uint64
	for iterations < maxIterations {
		rootNode := s.Tree.Node(rh)
		if rootNode.Info.PN.IsProved() {
			break
		}
		mpn, ok := s.Tree.GetMpn(s.LandSwitching, s.RNG, nil)
		if !ok {
			break
		}
		s.expand(mpn)
		s.Tree.UpdatePaths(mpn, s.DB)
		iterations++
	}

	log.Info().
		Uint64("iterations", iterations).
		Int("tree-size", s.Tree.Size()).
		Str("root", root.Compact()).
		Msg("basic pns solve finished")

	root2 := s.Tree.Node(rh)
	return nodeExpansionInfo(s.Tree, rh, root2)
}

// ExpandCouple satisfies InnerExpander, letting a BasicPnsSolver act as
// a group.ParallelGroup worker the same way a DfpnSolver or
// ParallelDfpn does.
func (s *BasicPnsSolver) ExpandCouple(c nimber.Couple, maxIterations uint64) ExpansionInfo {
	return s.Solve(c, maxIterations)
}

func (s *BasicPnsSolver) expand(h Handle) {
	if s.Inner != nil {
		node := s.Tree.Node(h)
		info := s.Inner.ExpandCouple(node.State, s.InnerBudget)
		s.Tree.Expand(h, info, s.Stored)
		return
	}
	s.Tree.ExpandLocal(h, s.DB, s.Stored)
}

func nodeExpansionInfo(t *Tree, h Handle, node *TreeNode) ExpansionInfo {
	children := make([]ExpandedChild, len(node.Children))
	for i, c := range node.Children {
		children[i] = ExpandedChild{Couple: c.couple, PN: t.Node(c.handle).Info.PN}
	}
	return ExpansionInfo{PN: node.Info.PN, MergedNimber: node.Info.MergedNimber, Children: children}
}
