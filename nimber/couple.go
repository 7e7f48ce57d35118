package nimber

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cizektom/spots/errs"
	"github.com/cizektom/spots/pn"
)

// coupleSeparator joins a position's compact string and its decimal
// nimber in the wire encoding: "<positionStr><SPACE><nimberDecimal>".
const coupleSeparator = ' '

// Couple pairs a game position with an overlay nim value that has
// absorbed the Grundy values of independent subgames the couple has
// already resolved.
type Couple struct {
	Position Game
	Nim      Nimber
}

// Compact renders the wire encoding of the couple.
func (c Couple) Compact() string {
	var b strings.Builder
	b.WriteString(c.Position.Compact())
	b.WriteByte(coupleSeparator)
	b.WriteString(strconv.FormatUint(uint64(c.Nim), 10))
	return b.String()
}

// Equal compares two couples by their compact form.
func (c Couple) Equal(other Couple) bool {
	return c.Position.Equal(other.Position) && c.Nim == other.Nim
}

// PositionParser constructs a Game from its Compact encoding; it is the
// per-game factory a concrete adapter package (e.g. sprouts) supplies so
// that generic couple-wire parsing doesn't need to know about any
// particular game's alphabet.
type PositionParser func(s string) (Game, error)

// ParseCouple parses the "<positionStr> <nim>" wire encoding back into a
// Couple, using parse to decode the position portion.
func ParseCouple(s string, parse PositionParser) (Couple, error) {
	idx := strings.LastIndexByte(s, coupleSeparator)
	if idx < 0 {
		return Couple{}, fmt.Errorf("%w: couple %q missing nim separator", errs.ErrInvalidInput, s)
	}
	posStr, nimStr := s[:idx], s[idx+1:]
	nim, err := strconv.ParseUint(nimStr, 10, 16)
	if err != nil {
		return Couple{}, fmt.Errorf("%w: couple %q has invalid nim: %v", errs.ErrInvalidInput, s, err)
	}
	pos, err := parse(posStr)
	if err != nil {
		return Couple{}, fmt.Errorf("%w: couple %q has invalid position: %v", errs.ErrInvalidInput, s, err)
	}
	return Couple{Position: pos, Nim: Nimber(nim)}, nil
}

// GetLives is a passthrough to the position's lives estimate, used by the
// default comparers and by PnsNode's cached state.
func (c Couple) GetLives() uint32 {
	return c.Position.GetLives()
}

// GetOutcome resolves the couple's outcome when it is terminal: normal
// play reduces to the overlay nim; other conventions defer to the
// position itself.
func (c Couple) GetOutcome() pn.Outcome {
	if c.Position.IsNormalImpartial() {
		if c.Nim.IsWin() {
			return pn.Win
		}
		return pn.Loss
	}
	return c.Position.GetOutcome()
}

// MergeComputedLands scans the couple's independent subgames, absorbs
// every one whose nimber is already known into the overlay nim (XOR),
// and replaces the position with one retaining only the unresolved
// subgames. It reports whether anything changed.
func (c Couple) MergeComputedLands(db NimberLookup) (Couple, bool) {
	if !c.Position.IsMultiLand() {
		return c, false
	}
	subgames := c.Position.GetSubgames()
	if len(subgames) == 0 {
		return c, false
	}
	remaining := make([]Game, 0, len(subgames))
	nim := c.Nim
	changed := false
	for _, sg := range subgames {
		if known, ok := db.Get(sg.Compact()); ok {
			nim = Merge(nim, known)
			changed = true
			continue
		}
		remaining = append(remaining, sg)
	}
	if !changed {
		return c, false
	}
	return Couple{Position: c.Position.WithSubgames(remaining), Nim: nim}, true
}

// ComputeChildren implements the Couple child-generation algorithm: pure
// nim-subtraction moves, then game moves with on-the-fly subgame
// reduction, short-circuiting to an immediate Win if a reduced game
// child turns out to be a terminal Loss.
//
// It returns either a definite, proved outcome (children is nil) or an
// unproved list of children sorted by DefaultCoupleComparer.
func (c Couple) ComputeChildren(db NimberLookup) (children []Couple, outcome pn.Outcome, proved bool) {
	if c.Position.IsTerminal() {
		return nil, c.GetOutcome(), true
	}

	children = make([]Couple, 0, int(c.Nim)+len(c.Position.ComputeChildren()))
	for n := Nimber(0); n < c.Nim; n++ {
		children = append(children, Couple{Position: c.Position, Nim: n})
	}

	for _, gameChild := range c.Position.ComputeChildren() {
		childCouple := Couple{Position: gameChild, Nim: c.Nim}
		childCouple, _ = childCouple.MergeComputedLands(db)

		if childCouple.Position.IsTerminal() && childCouple.GetOutcome() == pn.Loss {
			// Every subgame of this child is resolved and the residual
			// position is a terminal loss: the parent has found a
			// winning move and search stops here.
			return nil, pn.Win, true
		}
		children = append(children, childCouple)
	}

	if len(children) == 0 {
		return nil, pn.Loss, true
	}

	SortCouples(children)
	return children, pn.Unknown, false
}
