package ttable

import (
	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/pn"
)

// DefaultTableCapacity mirrors pns_database.hpp's DEFAULT_TABLE_CAPACITY.
const DefaultTableCapacity = 50_000_000

// PnsDatabase is the couple-keyed view of a BucketTable: it knows how to
// turn a Couple into a lookup key and how to resolve a couple's outcome
// by first reducing known subgames (mergeComputedLands) and only then
// consulting the stored transposition entry.
type PnsDatabase struct {
	table *BucketTable
}

// NewPnsDatabase wraps a freshly created BucketTable of the given
// capacity.
func NewPnsDatabase(capacity uint64, threadSafe bool) *PnsDatabase {
	if capacity == 0 {
		capacity = DefaultTableCapacity
	}
	return &PnsDatabase{table: New(capacity, threadSafe)}
}

// Find looks up the stored entry for a couple.
func (d *PnsDatabase) Find(c nimber.Couple) (StoredNodeInfo, bool) {
	return d.table.Find(c.Compact())
}

// Insert stores (or merges) an entry for a couple.
func (d *PnsDatabase) Insert(c nimber.Couple, value StoredNodeInfo) (StoredNodeInfo, bool) {
	return d.table.Insert(c.Compact(), value)
}

// Mark/Unmark delegate thread-ownership bookkeeping to the underlying table.
func (d *PnsDatabase) Mark(c nimber.Couple, threadID int) {
	d.table.Mark(c.Compact(), threadID)
}

func (d *PnsDatabase) Unmark(c nimber.Couple, threadID int) {
	d.table.Unmark(c.Compact(), threadID)
}

func (d *PnsDatabase) MarkedThreadIDs(c nimber.Couple) []int {
	return d.table.MarkedThreadIDs(c.Compact())
}

// GetOutcome resolves a couple's outcome: it first absorbs any known
// subgame nimbers via mergeComputedLands, checks whether that alone
// proves the couple, and only then consults the transposition table for
// a previously completed proof.
func (d *PnsDatabase) GetOutcome(c nimber.Couple, db nimber.NimberLookup) pn.Outcome {
	reduced, _ := c.MergeComputedLands(db)
	if reduced.Position.IsTerminal() {
		return reduced.GetOutcome()
	}
	if stored, ok := d.Find(reduced); ok && stored.Proved() {
		return stored.PN.ToOutcome()
	}
	return pn.Unknown
}
