// Package sprouts implements nimber.Game for the pencil-and-paper game
// of Sprouts: players take turns joining two spots (or one spot to
// itself) with a line and placing a new spot on it, with every spot
// capped at three lines. A position is a set of independent lands, each
// a handful of spots tracked only by their remaining life (3 minus
// lines already drawn), following the digit encoding of the source
// implementation's Vertex type: a land is a string of '0'-'3' digits,
// where digit d means life 3-d; lands are separated by '+' and the
// whole position ends in '!'.
//
// The planar legality of a move — which pairs of spots a line may
// actually join without crossing an existing one, and which region a
// self-loop isolates — is left out: this package only needs to produce
// a life-conserving, Sprague-Grundy-correct combinatorial game, not a
// faithful move generator. Moves apply within one land and a self-loop
// deterministically splits the rest of that land's spots between the
// two new halves (alternating by their prior index), which is enough
// to exercise multi-land decomposition without modeling a real planar
// boundary.
package sprouts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cizektom/spots/errs"
	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/pn"
)

const (
	landSeparator   = '+'
	positionEndChar = '!'
	deadValue       = 3
	newSpotValue    = 2
)

// Land is one independent component: the remaining value (0-3, life =
// 3-value) of every spot still tracked. Dead spots (value 3) are
// dropped as soon as a move produces them, since they can never again
// take part in a move.
type Land []uint8

func life(v uint8) uint32 { return uint32(deadValue) - uint32(v) }

// movable reports whether any move remains in the land: either a
// self-loop (a spot with life >= 2) or two distinct spots each with
// life >= 1.
func (l Land) movable() bool {
	alive := 0
	for _, v := range l {
		if life(v) >= 2 {
			return true
		}
		if life(v) >= 1 {
			alive++
			if alive >= 2 {
				return true
			}
		}
	}
	return false
}

func (l Land) lives() uint32 {
	var total uint32
	for _, v := range l {
		total += life(v)
	}
	return total
}

func sortedCopyWithout(l Land, dead func(uint8) bool, extra ...uint8) Land {
	out := make(Land, 0, len(l)+len(extra))
	for _, v := range l {
		if !dead(v) {
			out = append(out, v)
		}
	}
	for _, v := range extra {
		if !dead(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func isDead(v uint8) bool { return v >= deadValue }

func (l Land) compact() string {
	var b strings.Builder
	for _, v := range l {
		b.WriteByte('0' + v)
	}
	return b.String()
}

// Position is a Sprouts game state: a list of independent lands. It
// implements nimber.Game.
type Position struct {
	lands []Land
}

// NewStarting builds the classic opening position of n isolated spots,
// each with the full three lives.
func NewStarting(n int) *Position {
	land := make(Land, n)
	p := &Position{lands: []Land{land}}
	p.canonicalize()
	return p
}

// New wraps a fixed set of lands (used internally and by tests that
// want to build a position directly from life counts rather than
// parsing a compact string).
func New(lands ...Land) *Position {
	p := &Position{lands: lands}
	p.canonicalize()
	return p
}

func (p *Position) canonicalize() {
	lands := make([]Land, 0, len(p.lands))
	for _, l := range p.lands {
		clean := sortedCopyWithout(l, isDead)
		if len(clean) > 0 {
			lands = append(lands, clean)
		}
	}
	sort.Slice(lands, func(i, j int) bool { return lands[i].compact() < lands[j].compact() })
	p.lands = lands
}

// Compact renders the "<land>+<land>+...!" encoding.
func (p *Position) Compact() string {
	var b strings.Builder
	for i, l := range p.lands {
		if i > 0 {
			b.WriteByte(landSeparator)
		}
		b.WriteString(l.compact())
	}
	b.WriteByte(positionEndChar)
	return b.String()
}

// Equal compares positions by their compact form.
func (p *Position) Equal(other nimber.Game) bool {
	return p.Compact() == other.Compact()
}

// IsNormalImpartial is always true: Sprouts is played under normal
// play with impartial moves.
func (p *Position) IsNormalImpartial() bool { return true }

// IsTerminal reports that no land has a move remaining.
func (p *Position) IsTerminal() bool {
	for _, l := range p.lands {
		if l.movable() {
			return false
		}
	}
	return true
}

// GetOutcome is consulted only when IsNormalImpartial is false; kept
// for interface completeness and mirroring the source's fallback.
func (p *Position) GetOutcome() pn.Outcome {
	if p.IsTerminal() {
		return pn.Loss
	}
	return pn.Unknown
}

// IsMultiLand reports whether the position has more than one
// independent land.
func (p *Position) IsMultiLand() bool { return len(p.lands) > 1 }

// GetSubgames returns one single-land Position per land.
func (p *Position) GetSubgames() []nimber.Game {
	out := make([]nimber.Game, len(p.lands))
	for i, l := range p.lands {
		out[i] = New(append(Land{}, l...))
	}
	return out
}

// GetSubgamesNumber is len(lands) without materializing them.
func (p *Position) GetSubgamesNumber() int { return len(p.lands) }

// WithSubgames rebuilds a position retaining only the given subgames,
// each of which must be a single-land *Position (as produced by
// GetSubgames).
func (p *Position) WithSubgames(remaining []nimber.Game) nimber.Game {
	lands := make([]Land, 0, len(remaining))
	for _, g := range remaining {
		sub, ok := g.(*Position)
		if !ok || len(sub.lands) == 0 {
			continue
		}
		lands = append(lands, sub.lands[0])
	}
	return New(lands...)
}

// GetLives sums the remaining life of every spot in every land; since
// every move consumes exactly one unit of total life, this is an upper
// bound on the number of plies left. It is not exact: a position can be
// terminal with lives remaining (a land holding one spot with one life).
func (p *Position) GetLives() uint32 {
	var total uint32
	for _, l := range p.lands {
		total += l.lives()
	}
	return total
}

// EstimateChildrenNumber returns a cheap upper bound on ComputeChildren's
// length: roughly one candidate move per pair of still-alive spots in
// each land.
func (p *Position) EstimateChildrenNumber() uint64 {
	var total uint64
	for _, l := range p.lands {
		n := uint64(len(l))
		total += n * (n + 1) / 2
	}
	return total
}

// EstimateProofDepth and EstimateDisproofDepth both fall back to
// GetLives, matching Position::estimateProofDepth in the source.
func (p *Position) EstimateProofDepth() uint64    { return uint64(p.GetLives()) }
func (p *Position) EstimateDisproofDepth() uint64 { return uint64(p.GetLives()) }

// ComputeChildren enumerates one-move successors. It is only ever
// invoked by the engine on single-land positions (IsMultiLand
// positions expand one child per subgame instead), but it handles any
// land count by moving within one land at a time and leaving the rest
// untouched.
func (p *Position) ComputeChildren() []nimber.Game {
	var children []nimber.Game
	for li, land := range p.lands {
		children = append(children, movesWithinLand(p.lands, li, land)...)
	}
	return children
}

// movesWithinLand enumerates every move inside lands[li], holding every
// other land fixed, and wraps each resulting land set into a full
// Position.
func movesWithinLand(lands []Land, li int, land Land) []nimber.Game {
	var out []nimber.Game
	for i := 0; i < len(land); i++ {
		if life(land[i]) < 1 {
			continue
		}
		for j := i; j < len(land); j++ {
			if i == j {
				if life(land[i]) < 2 {
					continue
				}
			} else if life(land[j]) < 1 {
				continue
			}
			out = append(out, applyMove(lands, li, land, i, j))
		}
	}
	return out
}

// applyMove builds the position resulting from connecting spots i and j
// (i==j means a self-loop) within lands[li], leaving every other land
// untouched. A self-loop splits the land's other spots between the two
// halves it creates, alternating by their original index; a
// two-distinct-spot move stays within a single land.
func applyMove(lands []Land, li int, land Land, i, j int) nimber.Game {
	rest := make([]Land, 0, len(lands))
	for k, l := range lands {
		if k != li {
			rest = append(rest, append(Land{}, l...))
		}
	}

	if i != j {
		updated := append(Land{}, land...)
		updated[i]++
		updated[j]++
		newLand := sortedCopyWithout(updated, isDead, newSpotValue)
		return New(append(rest, newLand)...)
	}

	selfValue := land[i] + 2
	var others []uint8
	for k, v := range land {
		if k != i {
			others = append(others, v)
		}
	}
	if len(others) == 0 {
		newLand := sortedCopyWithout(Land{selfValue}, isDead, newSpotValue)
		return New(append(rest, newLand)...)
	}

	var half1, half2 []uint8
	for k, v := range others {
		if k%2 == 0 {
			half1 = append(half1, v)
		} else {
			half2 = append(half2, v)
		}
	}
	landA := sortedCopyWithout(append(Land{selfValue}, half1...), isDead, newSpotValue)
	if len(half2) == 0 {
		return New(append(rest, landA)...)
	}
	landB := sortedCopyWithout(Land(half2), isDead)
	return New(append(rest, landA, landB)...)
}

// Parse decodes the "<land>+<land>+...!" wire encoding back into a
// Position, validating that every land character is a digit 0-3.
func Parse(s string) (nimber.Game, error) {
	s = strings.TrimSuffix(s, string(positionEndChar))
	if s == "" {
		return New(), nil
	}
	parts := strings.Split(s, string(landSeparator))
	lands := make([]Land, 0, len(parts))
	for _, part := range parts {
		land := make(Land, 0, len(part))
		for _, ch := range part {
			if ch < '0' || ch > '3' {
				return nil, fmt.Errorf("%w: sprouts position %q has invalid spot digit %q", errs.ErrInvalidInput, s, ch)
			}
			land = append(land, uint8(ch-'0'))
		}
		lands = append(lands, land)
	}
	return New(lands...), nil
}
