package nimber

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cizektom/spots/pn"
)

// pileGame is a minimal single-pile subtraction game (remove 1..3 stones)
// used only to exercise Couple's generic child-generation logic without
// any dependency on the Sprouts adapter.
type pileGame struct {
	n int
}

func (g pileGame) Compact() string { return "P" + strconv.Itoa(g.n) }
func (g pileGame) Equal(other Game) bool {
	o, ok := other.(pileGame)
	return ok && o.n == g.n
}
func (g pileGame) IsNormalImpartial() bool { return true }
func (g pileGame) IsTerminal() bool        { return g.n == 0 }
func (g pileGame) GetOutcome() pn.Outcome  { return pn.Unknown }
func (g pileGame) IsMultiLand() bool       { return false }
func (g pileGame) ComputeChildren() []Game {
	var out []Game
	for take := 1; take <= 3 && take <= g.n; take++ {
		out = append(out, pileGame{n: g.n - take})
	}
	return out
}
func (g pileGame) GetSubgames() []Game               { return nil }
func (g pileGame) GetSubgamesNumber() int             { return 0 }
func (g pileGame) WithSubgames(remaining []Game) Game { return g }
func (g pileGame) GetLives() uint32                   { return uint32(g.n) }
func (g pileGame) EstimateChildrenNumber() uint64     { return uint64(g.n) }
func (g pileGame) EstimateProofDepth() uint64         { return uint64(g.n) }
func (g pileGame) EstimateDisproofDepth() uint64      { return uint64(g.n) }

type fakeDB struct{ known map[string]Nimber }

func (d fakeDB) Get(compact string) (Nimber, bool) {
	n, ok := d.known[compact]
	return n, ok
}

func parsePileGame(s string) (Game, error) {
	var n int
	if _, err := fmt.Sscanf(s, "P%d", &n); err != nil {
		return nil, err
	}
	return pileGame{n: n}, nil
}

func TestComputeChildrenTerminal(t *testing.T) {
	c := Couple{Position: pileGame{n: 0}, Nim: 0}
	children, outcome, proved := c.ComputeChildren(fakeDB{})
	assert.True(t, proved)
	assert.Nil(t, children)
	assert.Equal(t, pn.Loss, outcome)
}

func TestComputeChildrenTerminalWithWinningNim(t *testing.T) {
	c := Couple{Position: pileGame{n: 0}, Nim: 3}
	_, outcome, proved := c.ComputeChildren(fakeDB{})
	assert.True(t, proved)
	assert.Equal(t, pn.Win, outcome)
}

func TestComputeChildrenNimMoves(t *testing.T) {
	c := Couple{Position: pileGame{n: 1}, Nim: 2}
	children, _, proved := c.ComputeChildren(fakeDB{})
	require.False(t, proved)
	var nimMoves int
	for _, ch := range children {
		if ch.Position.Equal(pileGame{n: 1}) {
			nimMoves++
		}
	}
	assert.Equal(t, 2, nimMoves) // nim 0 and nim 1
}

func TestCoupleRoundTrip(t *testing.T) {
	c := Couple{Position: pileGame{n: 5}, Nim: 3}
	parsed, err := ParseCouple(c.Compact(), parsePileGame)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(c))
}

func TestSortCouplesByLives(t *testing.T) {
	couples := []Couple{
		{Position: pileGame{n: 9}, Nim: 0},
		{Position: pileGame{n: 1}, Nim: 0},
		{Position: pileGame{n: 5}, Nim: 0},
	}
	SortCouples(couples)
	assert.Equal(t, 1, couples[0].Position.(pileGame).n)
	assert.Equal(t, 5, couples[1].Position.(pileGame).n)
	assert.Equal(t, 9, couples[2].Position.(pileGame).n)
}
