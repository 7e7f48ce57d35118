// Package ttable implements the bucketed transposition table that
// memoises proof-number search progress for previously-seen couples,
// plus the mark/unmark bookkeeping ParallelDfpn uses to track which
// worker threads currently own a node.
package ttable

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash"
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/cizektom/spots/pn"
)

// BucketSize is the fixed number of entries per bucket.
const BucketSize = 4

// entrySize is a rough per-entry byte estimate used only to size a table
// from a fraction of system memory.
const entrySize = 64

// StoredNodeInfo is the value memoised per compact couple: its proof
// numbers and the iteration count of the search that produced them.
// Proved entries are never overwritten by a later, non-proved variant;
// among non-proved entries the one with the higher iteration count wins.
type StoredNodeInfo struct {
	PN         pn.ProofNumbers
	Iterations uint64
}

// Proved reports whether the stored value represents a finished proof.
func (s StoredNodeInfo) Proved() bool {
	return s.PN.IsProved()
}

// Update merges a newly observed value into an existing stored entry,
// implementing dfpn.hpp's StoredNodeInfo::update: proved entries are
// sticky, otherwise the higher-iteration variant is kept.
func (s StoredNodeInfo) Update(newer StoredNodeInfo) StoredNodeInfo {
	if s.Proved() {
		return s
	}
	if newer.Iterations > s.Iterations {
		return newer
	}
	return s
}

// weaker reports whether a is the weaker (more evictable) of the two
// entries: proved entries are always stronger than non-proved ones;
// among non-proved entries, lower iteration count is weaker.
func weaker(a, b StoredNodeInfo) bool {
	if a.Proved() != b.Proved() {
		return !a.Proved()
	}
	return a.Iterations < b.Iterations
}

// TableLock is the per-bucket lock strategy. A real *sync.RWMutex
// satisfies it directly; FakeLock lets single-threaded callers skip
// locking overhead entirely.
type TableLock interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// FakeLock is a no-op TableLock for single-threaded use.
type FakeLock struct{}

func (FakeLock) Lock()    {}
func (FakeLock) Unlock()  {}
func (FakeLock) RLock()   {}
func (FakeLock) RUnlock() {}

type tableEntry struct {
	key       string
	value     StoredNodeInfo
	occupied  bool
	threadIDs map[int]struct{}
}

type bucket struct {
	TableLock
	entries [BucketSize]tableEntry
}

// BucketTable is a fixed-capacity open-addressed hash table keyed by
// compact couple string, BucketSize entries per bucket, guarded by a
// per-bucket reader/writer lock that is a no-op when the table is built
// for single-threaded use.
type BucketTable struct {
	buckets  []bucket
	sizeMask uint64

	created atomic.Uint64
	lookups atomic.Uint64
	hits    atomic.Uint64
}

// New creates a table with at least capacity entries (rounded up to a
// power-of-two bucket count), in the given thread-safety mode.
func New(capacity uint64, threadSafe bool) *BucketTable {
	numBuckets := nextPow2(max64(capacity/BucketSize, 1))
	return newWithBucketCount(numBuckets, threadSafe)
}

// NewFromMemoryFraction sizes the table against a fraction of total
// system memory, mirroring transposition_table.go's Reset(fractionOfMemory, ...).
func NewFromMemoryFraction(fraction float64, threadSafe bool) *BucketTable {
	total := memory.TotalMemory()
	desiredEntries := uint64(fraction * float64(total) / float64(entrySize))
	numBuckets := nextPow2(max64(desiredEntries/BucketSize, 1))
	t := newWithBucketCount(numBuckets, threadSafe)
	log.Info().
		Uint64("num-buckets", numBuckets).
		Uint64("total-system-memory-bytes", total).
		Msg("sized transposition table from memory fraction")
	return t
}

func newWithBucketCount(numBuckets uint64, threadSafe bool) *BucketTable {
	t := &BucketTable{
		buckets:  make([]bucket, numBuckets),
		sizeMask: numBuckets - 1,
	}
	for i := range t.buckets {
		if threadSafe {
			t.buckets[i].TableLock = &sync.RWMutex{}
		} else {
			t.buckets[i].TableLock = FakeLock{}
		}
	}
	return t
}

func (t *BucketTable) bucketFor(key string) *bucket {
	idx := xxhash.Sum64String(key) & t.sizeMask
	return &t.buckets[idx]
}

// Find returns a copy of the stored entry for key, if present.
func (t *BucketTable) Find(key string) (StoredNodeInfo, bool) {
	b := t.bucketFor(key)
	b.RLock()
	defer b.RUnlock()
	t.lookups.Add(1)
	for i := range b.entries {
		if b.entries[i].occupied && b.entries[i].key == key {
			t.hits.Add(1)
			return b.entries[i].value, true
		}
	}
	return StoredNodeInfo{}, false
}

// Insert stores value under key, merging with any existing entry for
// the same key, filling an empty slot if one exists, or evicting the
// weakest entry in the bucket otherwise. It returns the previous value
// for key, if there was one.
func (t *BucketTable) Insert(key string, value StoredNodeInfo) (StoredNodeInfo, bool) {
	b := t.bucketFor(key)
	b.Lock()
	defer b.Unlock()
	t.created.Add(1)

	for i := range b.entries {
		if b.entries[i].occupied && b.entries[i].key == key {
			prev := b.entries[i].value
			b.entries[i].value = prev.Update(value)
			return prev, true
		}
	}

	for i := range b.entries {
		if !b.entries[i].occupied {
			b.entries[i] = tableEntry{key: key, value: value, occupied: true}
			return StoredNodeInfo{}, false
		}
	}

	weakestIdx := 0
	for i := 1; i < BucketSize; i++ {
		if weaker(b.entries[i].value, b.entries[weakestIdx].value) {
			weakestIdx = i
		}
	}
	prev := b.entries[weakestIdx].value
	b.entries[weakestIdx] = tableEntry{key: key, value: value, occupied: true}
	return prev, true
}

// Mark records that threadID currently owns the node stored under key,
// used by ParallelDfpn so a later proof can notify every thread that was
// working on a now-proved transposition. It is a no-op if key is absent.
func (t *BucketTable) Mark(key string, threadID int) {
	b := t.bucketFor(key)
	b.Lock()
	defer b.Unlock()
	for i := range b.entries {
		if b.entries[i].occupied && b.entries[i].key == key {
			if b.entries[i].threadIDs == nil {
				b.entries[i].threadIDs = make(map[int]struct{})
			}
			b.entries[i].threadIDs[threadID] = struct{}{}
			return
		}
	}
}

// Unmark removes threadID's ownership mark for key.
func (t *BucketTable) Unmark(key string, threadID int) {
	b := t.bucketFor(key)
	b.Lock()
	defer b.Unlock()
	for i := range b.entries {
		if b.entries[i].occupied && b.entries[i].key == key {
			delete(b.entries[i].threadIDs, threadID)
			return
		}
	}
}

// MarkedThreadIDs returns the set of thread ids currently marked on key.
func (t *BucketTable) MarkedThreadIDs(key string) []int {
	b := t.bucketFor(key)
	b.RLock()
	defer b.RUnlock()
	for i := range b.entries {
		if b.entries[i].occupied && b.entries[i].key == key {
			ids := make([]int, 0, len(b.entries[i].threadIDs))
			for id := range b.entries[i].threadIDs {
				ids = append(ids, id)
			}
			return ids
		}
	}
	return nil
}

// Stats returns lookup/hit/created counters for diagnostics.
func (t *BucketTable) Stats() (created, lookups, hits uint64) {
	return t.created.Load(), t.lookups.Load(), t.hits.Load()
}

func nextPow2(v uint64) uint64 {
	p := uint64(1)
	for p < v {
		p <<= 1
	}
	return p
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
