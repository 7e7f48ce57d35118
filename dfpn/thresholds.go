// Package dfpn implements the sequential depth-first proof-number
// search (§4.8): a single path allocated on the call stack, governed at
// each node by a threshold quintuple that is derived, pure-functionally,
// from the parent's thresholds and the chosen child's proof numbers.
package dfpn

import (
	"github.com/cizektom/spots/pn"
	"github.com/cizektom/spots/pns"
)

// Thresholds is the quintuple (proofTh, disproofTh, pShift, dShift,
// minTh) that governs one DFPN node. The threshold predicate
// (HoldsFor) and the two descent rules (DeriveSingle, DeriveMultiLand)
// are pure value transitions, matching §9's "Threshold algebra as pure
// values" design note.
type Thresholds struct {
	ProofTh    pn.PN
	DisproofTh pn.PN
	PShift     pn.PN
	DShift     pn.PN
	MinTh      pn.PN
}

// RootThresholds is the quintuple a fresh top-level DFPN call starts
// with: both main thresholds at Inf (searched until proved), no shift,
// and minTh bounding the overall iteration budget translated into a
// proof-number unit.
func RootThresholds(minTh pn.PN) Thresholds {
	return Thresholds{ProofTh: pn.Inf, DisproofTh: pn.Inf, MinTh: minTh}
}

// HoldsFor reports whether th still permits searching node pnVals:
// (proof < proofTh) AND (disproof < disproofTh) AND
// (min(proof+pShift, disproof+dShift) < minTh).
func (th Thresholds) HoldsFor(pnVals pn.ProofNumbers) bool {
	if !pnVals.Proof.Less(th.ProofTh) {
		return false
	}
	if !pnVals.Disproof.Less(th.DisproofTh) {
		return false
	}
	shiftedProof := pnVals.Proof.MustAdd(th.PShift)
	shiftedDisproof := pnVals.Disproof.MustAdd(th.DShift)
	return pn.Min(shiftedProof, shiftedDisproof).Less(th.MinTh)
}

// GetSwitchingThreshold computes the DFPN switching value from the
// runner-up's complexity: childComplexity(mpn2) + 1, or Inf if there is
// no runner-up.
func GetSwitchingThreshold(hasRunnerUp bool, runnerUpComplexity pn.PN) pn.PN {
	if !hasRunnerUp {
		return pn.Inf
	}
	return runnerUpComplexity.MustAdd(1)
}

// DeriveSingle computes the child thresholds for a single-subgame
// (AND/OR) descent step, per §4.8's single-subgame rule. parentDisproof
// is the parent's disproof number before descent; childPN is the chosen
// child's current proof numbers.
func DeriveSingle(parent Thresholds, parentDisproof pn.PN, childPN pn.ProofNumbers, switching pn.PN, epsilon float64) Thresholds {
	disproofTh := pn.Min(parent.ProofTh, switching)
	if epsilon > 1 && !switching.IsInf() {
		scaled := pn.PN(float64(switching) * epsilon)
		disproofTh = pn.Min(parent.ProofTh, scaled)
	}

	diff, err := parent.DisproofTh.Sub(mustSub(parentDisproof, childPN.Proof))
	proofTh := diff
	if err != nil {
		proofTh = pn.Inf
	}

	pShift := parent.DShift.MustAdd(mustSub(parentDisproof, childPN.Proof))

	return Thresholds{
		ProofTh:    proofTh,
		DisproofTh: disproofTh,
		PShift:     pShift,
		DShift:     parent.PShift,
		MinTh:      parent.MinTh,
	}
}

// mustSub computes a-b, floored at 0 instead of erroring: used for the
// "parent.disproof - child.proof" term, which the algorithm guarantees
// is non-negative in steady state but which we defend defensively
// against transient inconsistency during parallel updates.
func mustSub(a, b pn.PN) pn.PN {
	v, err := a.Sub(b)
	if err != nil {
		return 0
	}
	return v
}

// DeriveMultiLand computes the child thresholds for a multi-subgame
// descent step (§4.8's multi-subgame rule). With a single surviving
// child, thresholds pass through unchanged; otherwise only minTh governs
// (proof/disproof thresholds go to Inf, shifts to zero) and minTh is
// derived from the switching value and the parent's own complexity.
func DeriveMultiLand(parent Thresholds, singleSurvivor bool, parentProof pn.PN, childComplexity pn.PN, switching pn.PN) Thresholds {
	if singleSurvivor {
		return parent
	}

	shiftMin := pn.Min(parent.PShift, parent.DShift)
	shiftedMinTh := mustSub(parent.MinTh, shiftMin)
	inner := pn.Min(parent.ProofTh, pn.Min(parent.DisproofTh, shiftedMinTh))
	term := mustSub(inner, mustSub(parentProof, childComplexity))
	minTh := pn.Min(switching, term)

	return Thresholds{
		ProofTh:    pn.Inf,
		DisproofTh: pn.Inf,
		PShift:     0,
		DShift:     0,
		MinTh:      minTh,
	}
}

// ChildComplexityOf is a thin re-export of pns.ChildComplexity for
// callers in this package that only have a pns.ComplexityView.
func ChildComplexityOf(isMultiLand bool, c pns.ComplexityView) pn.PN {
	return pns.ChildComplexity(isMultiLand, c)
}
