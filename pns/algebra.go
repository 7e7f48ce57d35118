// Package pns implements the PnsNode proof-number algebra and the
// transposition-DAG tree (PnsTree) built on top of it, plus the
// sequential BasicPnsSolver. The proof-number update rules in this file
// are expressed as pure functions over small value types so that both
// the shared tree (PnsTree.Node, with parent back-links) and the
// single-path owning nodes used by DfpnSolver/ParallelDfpn can drive the
// same algebra without sharing representation.
package pns

import (
	"sort"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/pn"
)

// LandChild is a multi-subgame node's view of one surviving subgame
// child: enough to run the land-collapse rules and recompute proof
// numbers.
type LandChild struct {
	Couple nimber.Couple
	PN     pn.ProofNumbers
}

// PlainChild is a single-subgame node's view of one child: its proof
// numbers and whether it is currently locked (owned by another worker).
type PlainChild struct {
	PN     pn.ProofNumbers
	Locked bool
}

// UpdateLandChildren applies the multi-subgame collapse rules: children
// whose position now has a known nimber, or which proved Loss, are
// absorbed (XORed) into mergedNimber and dropped; children that proved
// Win are rebuilt to search the next candidate nimber. A lone surviving
// child has its target nim coerced to the merged value; an empty
// survivor set collapses the parent to Win or Loss by the merged
// nimber's parity.
func UpdateLandChildren(mergedNimber nimber.Nimber, children []LandChild, db nimber.NimberLookup, estimator nimber.ProofNumberEstimator) (survivors []LandChild, survivorIdx []int, newMergedNimber nimber.Nimber, proved bool, outcome pn.Outcome) {
	newMergedNimber = mergedNimber
	kept := make([]LandChild, 0, len(children))
	keptIdx := make([]int, 0, len(children))

	for i, ch := range children {
		if known, ok := db.Get(ch.Couple.Position.Compact()); ok {
			newMergedNimber = nimber.Merge(newMergedNimber, known)
			continue
		}
		if ch.PN.IsLoss() {
			newMergedNimber = nimber.Merge(newMergedNimber, ch.Couple.Nim)
			continue
		}
		if ch.PN.IsWin() {
			rebuilt := nimber.Couple{Position: ch.Couple.Position, Nim: ch.Couple.Nim.Next()}
			proofEst, disproofEst := estimator.Estimate(rebuilt)
			kept = append(kept, LandChild{
				Couple: rebuilt,
				PN:     pn.ProofNumbers{Proof: pn.PN(proofEst), Disproof: pn.PN(disproofEst)},
			})
			keptIdx = append(keptIdx, i)
			continue
		}
		kept = append(kept, ch)
		keptIdx = append(keptIdx, i)
	}

	switch len(kept) {
	case 0:
		if newMergedNimber.IsWin() {
			return nil, nil, newMergedNimber, true, pn.Win
		}
		return nil, nil, newMergedNimber, true, pn.Loss
	case 1:
		kept[0].Couple.Nim = newMergedNimber
		return kept, keptIdx, newMergedNimber, false, pn.Unknown
	default:
		return kept, keptIdx, newMergedNimber, false, pn.Unknown
	}
}

// UpdateSingleLandChildren applies the single-subgame collapse rules:
// any Loss child immediately proves a Win; Win children are dropped
// (they cannot be the parent's disproof path); an empty survivor set
// collapses to Loss.
func UpdateSingleLandChildren(children []PlainChild) (survivors []PlainChild, survivorIdx []int, proved bool, outcome pn.Outcome) {
	for _, ch := range children {
		if ch.PN.IsLoss() {
			return nil, nil, true, pn.Win
		}
	}
	kept := make([]PlainChild, 0, len(children))
	keptIdx := make([]int, 0, len(children))
	for i, ch := range children {
		if ch.PN.IsWin() {
			continue
		}
		kept = append(kept, ch)
		keptIdx = append(keptIdx, i)
	}
	if len(kept) == 0 {
		return nil, nil, true, pn.Loss
	}
	return kept, keptIdx, false, pn.Unknown
}

// AllLocked reports whether every entry is locked; locked propagates up
// a node iff all of its children are locked.
func AllLocked(locked []bool) bool {
	for _, l := range locked {
		if !l {
			return false
		}
	}
	return true
}

// ComputeMultiLandProofNumbers recomputes a multi-subgame node's proof
// numbers from its surviving children: proof = disproof =
// sum(min(child.proof, child.disproof)), an AND-of-games reduction;
// overestimated substitutes max+(n-1) for the sum.
func ComputeMultiLandProofNumbers(children []LandChild, overestimated bool) (pn.ProofNumbers, error) {
	if len(children) == 0 {
		return pn.ProofNumbers{}, nil
	}
	var total pn.PN
	var err error
	if overestimated {
		var maxComplexity pn.PN
		for _, c := range children {
			maxComplexity = pn.Max(maxComplexity, pn.Min(c.PN.Proof, c.PN.Disproof))
		}
		total, err = maxComplexity.Add(pn.PN(len(children) - 1))
	} else {
		for _, c := range children {
			total, err = total.Add(pn.Min(c.PN.Proof, c.PN.Disproof))
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		return pn.ProofNumbers{}, err
	}
	return pn.ProofNumbers{Proof: total, Disproof: total}, nil
}

// ComputeSingleLandProofNumbers recomputes a single-subgame node's proof
// numbers: disproof is the sum of children's proof numbers; proof is the
// minimum disproof number among non-locked children, or (when the node
// itself is locked, which only happens once every child is locked) the
// maximum disproof number among the locked children. overestimated
// substitutes max+(n-1) for the disproof sum.
func ComputeSingleLandProofNumbers(children []PlainChild, selfLocked, overestimated bool) (pn.ProofNumbers, error) {
	if len(children) == 0 {
		return pn.ProofNumbers{}, nil
	}
	var disproof pn.PN
	var err error
	if overestimated {
		var maxProof pn.PN
		for _, c := range children {
			maxProof = pn.Max(maxProof, c.PN.Proof)
		}
		disproof, err = maxProof.Add(pn.PN(len(children) - 1))
	} else {
		for _, c := range children {
			disproof, err = disproof.Add(c.PN.Proof)
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		return pn.ProofNumbers{}, err
	}

	proof := pn.Inf
	if !selfLocked {
		for _, c := range children {
			if c.Locked {
				continue
			}
			proof = pn.Min(proof, c.PN.Disproof)
		}
	} else {
		proof = 0
		for _, c := range children {
			proof = pn.Max(proof, c.PN.Disproof)
		}
	}
	return pn.ProofNumbers{Proof: proof, Disproof: disproof}, nil
}

// ComplexityView is the minimal per-child view GetMpnIdx and
// ChildComplexity need: its own proof numbers, whether it is locked, and
// (only meaningful under ParallelDfpn) how many worker threads are
// currently descending through it.
type ComplexityView interface {
	ProofNumbers() pn.ProofNumbers
	Locked() bool
	WorkingThreads() int
}

// ChildComplexity is disproof for a single-subgame node's child,
// min(proof, disproof) for a multi-subgame node's child, plus the
// child's working-thread virtual-loss count.
func ChildComplexity(isMultiLand bool, c ComplexityView) pn.PN {
	var base pn.PN
	if isMultiLand {
		base = pn.Min(c.ProofNumbers().Proof, c.ProofNumbers().Disproof)
	} else {
		base = c.ProofNumbers().Disproof
	}
	return base.MustAdd(pn.PN(c.WorkingThreads()))
}

// RNG is the minimal randomness capability GetMpnIdx needs for tie
// breaking; a nil RNG makes ties resolve to the first candidate.
type RNG interface {
	Intn(n int) int
}

// GetMpnIdx selects the most-proving child index and its runner-up
// (used to derive the DFPN switching threshold). For a multi-subgame
// node with landSwitching disabled, only the first non-locked child is
// ever considered, enforcing deterministic, lowest-nimber-first descent.
// Otherwise the minimum-complexity non-locked child is chosen, with
// ties among the lowest complexity tier broken uniformly at random when
// rng is non-nil.
func GetMpnIdx(isMultiLand bool, children []ComplexityView, landSwitching bool, rng RNG) (mpnIdx, runnerUpIdx int, ok bool) {
	if isMultiLand && !landSwitching {
		for i, c := range children {
			if !c.Locked() {
				return i, -1, true
			}
		}
		return -1, -1, false
	}

	type candidate struct {
		idx        int
		complexity pn.PN
	}
	var candidates []candidate
	for i, c := range children {
		if c.Locked() {
			continue
		}
		candidates = append(candidates, candidate{idx: i, complexity: ChildComplexity(isMultiLand, c)})
	}
	if len(candidates) == 0 {
		return -1, -1, false
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].complexity < candidates[j].complexity })

	tieEnd := 1
	for tieEnd < len(candidates) && candidates[tieEnd].complexity == candidates[0].complexity {
		tieEnd++
	}
	chosenPos := 0
	if tieEnd > 1 && rng != nil {
		chosenPos = rng.Intn(tieEnd)
	}
	mpnIdx = candidates[chosenPos].idx

	runnerUpIdx = -1
	for i := range candidates {
		if i == chosenPos {
			continue
		}
		runnerUpIdx = candidates[i].idx
		break
	}
	return mpnIdx, runnerUpIdx, true
}
