package ttable

import (
	"fmt"
	"testing"

	"github.com/matryer/is"

	"github.com/cizektom/spots/pn"
)

func TestInsertFindRoundTrip(t *testing.T) {
	is := is.New(t)
	tab := New(16, true)

	v := StoredNodeInfo{PN: pn.ProofNumbers{Proof: 3, Disproof: 5}, Iterations: 10}
	_, had := tab.Insert("0*6 0", v)
	is.True(!had)

	got, ok := tab.Find("0*6 0")
	is.True(ok)
	is.Equal(got, v)
}

func TestProvedEntryNeverReplacedByNonProved(t *testing.T) {
	is := is.New(t)
	tab := New(16, true)

	proved := StoredNodeInfo{PN: pn.WinProofNumbers(), Iterations: 1}
	tab.Insert("k", proved)

	tab.Insert("k", StoredNodeInfo{PN: pn.ProofNumbers{Proof: 4, Disproof: 4}, Iterations: 1000})

	got, ok := tab.Find("k")
	is.True(ok)
	is.True(got.Proved())
	is.Equal(got, proved)
}

func TestEvictionFavorsWeakestEntry(t *testing.T) {
	is := is.New(t)
	// Force a tiny table (1 bucket) so every key collides.
	tab := newWithBucketCount(1, true)

	for i := 0; i < BucketSize; i++ {
		tab.Insert(fmt.Sprintf("weak-%d", i), StoredNodeInfo{
			PN:         pn.ProofNumbers{Proof: 1, Disproof: 1},
			Iterations: uint64(i), // weak-0 has the lowest iteration count
		})
	}

	// Bucket is full; inserting a new key must evict the weakest (weak-0).
	tab.Insert("newcomer", StoredNodeInfo{PN: pn.ProofNumbers{Proof: 2, Disproof: 2}, Iterations: 50})

	_, stillThere := tab.Find("weak-0")
	is.True(!stillThere)

	_, ok := tab.Find("newcomer")
	is.True(ok)
}

func TestMarkUnmarkThreadIDs(t *testing.T) {
	is := is.New(t)
	tab := New(16, true)
	tab.Insert("k", StoredNodeInfo{})

	tab.Mark("k", 1)
	tab.Mark("k", 2)
	is.Equal(len(tab.MarkedThreadIDs("k")), 2)

	tab.Unmark("k", 1)
	is.Equal(len(tab.MarkedThreadIDs("k")), 1)
}
