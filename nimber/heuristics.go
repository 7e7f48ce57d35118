package nimber

import "sort"

// LessGame orders two positions by the default game comparer: ascending
// lives, then ascending heuristic children-count estimate, then
// canonical string — used to keep multi-subgame child order deterministic.
func LessGame(a, b Game) bool {
	if a.GetLives() != b.GetLives() {
		return a.GetLives() < b.GetLives()
	}
	if ea, eb := a.EstimateChildrenNumber(), b.EstimateChildrenNumber(); ea != eb {
		return ea < eb
	}
	return a.Compact() < b.Compact()
}

// SortGames sorts positions in place by LessGame.
func SortGames(games []Game) {
	sort.Slice(games, func(i, j int) bool { return LessGame(games[i], games[j]) })
}

// LessCouple orders two couples by the default couple comparer: ascending
// lives + 4*nim; ties broken (for normal-play impartial games) by more
// independent subgames first, then heuristic children-count estimate,
// then canonical string.
func LessCouple(a, b Couple) bool {
	wa := uint64(a.GetLives()) + 4*uint64(a.Nim)
	wb := uint64(b.GetLives()) + 4*uint64(b.Nim)
	if wa != wb {
		return wa < wb
	}
	if a.Position.IsNormalImpartial() && b.Position.IsNormalImpartial() {
		na, nb := a.Position.GetSubgamesNumber(), b.Position.GetSubgamesNumber()
		if na != nb {
			return na > nb
		}
	}
	if ea, eb := a.Position.EstimateChildrenNumber(), b.Position.EstimateChildrenNumber(); ea != eb {
		return ea < eb
	}
	return a.Compact() < b.Compact()
}

// SortCouples sorts couples in place by LessCouple.
func SortCouples(couples []Couple) {
	sort.Slice(couples, func(i, j int) bool { return LessCouple(couples[i], couples[j]) })
}

// ProofNumberEstimator seeds a freshly created node's proof/disproof
// numbers before any expansion has happened.
type ProofNumberEstimator interface {
	Estimate(c Couple) (proof, disproof uint64)
}

// DefaultProofNumberEstimator always returns (1, 1), the classic PNS
// seed that makes every unexpanded leaf equally attractive.
type DefaultProofNumberEstimator struct{}

func (DefaultProofNumberEstimator) Estimate(Couple) (uint64, uint64) {
	return 1, 1
}

// DepthProofNumberEstimator seeds proof/disproof numbers from the
// position's own conservative depth lower bounds, giving deeper
// positions a head start toward bigger proof numbers.
type DepthProofNumberEstimator struct{}

func (DepthProofNumberEstimator) Estimate(c Couple) (uint64, uint64) {
	return 1 + c.Position.EstimateProofDepth(), 1 + c.Position.EstimateDisproofDepth()
}
