package pdfpn

import (
	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/pns"
)

// Expander adapts a ParallelDfpn (which needs a worker count per call)
// to the single-argument pns.InnerExpander capability that
// group.ParallelGroup and BasicPnsSolver's PN² mode expect.
type Expander struct {
	PDFPN   *ParallelDfpn
	Threads int
}

// ExpandCouple runs e.PDFPN with e.Threads internal worker goroutines.
func (e Expander) ExpandCouple(c nimber.Couple, maxIterations uint64) pns.ExpansionInfo {
	return e.PDFPN.Solve(c, e.Threads, maxIterations)
}
