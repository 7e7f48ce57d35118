package sprouts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStartingOneSpotOnlySelfLoop(t *testing.T) {
	p := NewStarting(1)
	assert.False(t, p.IsTerminal())
	assert.False(t, p.IsMultiLand())

	children := p.ComputeChildren()
	require.Len(t, children, 1)
	assert.Equal(t, "22!", children[0].Compact())
}

func TestNewStartingTwoSpotsThreeMoves(t *testing.T) {
	p := NewStarting(2)
	children := p.ComputeChildren()
	require.Len(t, children, 3)

	var compacts []string
	for _, c := range children {
		compacts = append(compacts, c.Compact())
	}
	assert.Contains(t, compacts, "022!")
	assert.Contains(t, compacts, "112!")
}

func TestSelfLoopSplitsThreeSpotsIntoTwoLands(t *testing.T) {
	p := NewStarting(3)
	children := p.ComputeChildren()

	var foundSplit bool
	for _, c := range children {
		pos := c.(*Position)
		if pos.IsMultiLand() {
			foundSplit = true
			assert.Equal(t, 2, pos.GetSubgamesNumber())
		}
	}
	assert.True(t, foundSplit, "at least one self-loop on a 3-spot land should split it into two lands")
}

func TestTerminalPositionHasNoMoves(t *testing.T) {
	p := New(Land{deadValue, deadValue})
	assert.True(t, p.IsTerminal())
	assert.Empty(t, p.ComputeChildren())
	assert.Equal(t, "!", p.Compact())
}

func TestDeadSpotsDroppedOnCanonicalize(t *testing.T) {
	p := New(Land{0, deadValue, 1})
	assert.Equal(t, "01!", p.Compact())
}

func TestParseCompactRoundTrip(t *testing.T) {
	p := New(Land{0, 1}, Land{2})
	parsed, err := Parse(p.Compact())
	require.NoError(t, err)
	assert.True(t, p.Equal(parsed))
}

func TestParseRejectsInvalidDigit(t *testing.T) {
	_, err := Parse("05!")
	assert.Error(t, err)
}

func TestGetSubgamesWithSubgamesRoundTrip(t *testing.T) {
	p := New(Land{0, 1}, Land{2})
	subs := p.GetSubgames()
	require.Len(t, subs, 2)

	rebuilt := p.WithSubgames(subs).(*Position)
	assert.True(t, p.Equal(rebuilt))
}

func TestGetLivesSumsRemainingLife(t *testing.T) {
	p := New(Land{0, 1, 2}) // lives 3, 2, 1
	assert.EqualValues(t, 6, p.GetLives())
	assert.EqualValues(t, p.GetLives(), p.EstimateProofDepth())
	assert.EqualValues(t, p.GetLives(), p.EstimateDisproofDepth())
}
