package nimber

import "github.com/cizektom/spots/pn"

// Game is the opaque capability set the search engine requires of a
// concrete combinatorial game. Sprouts-specific geometry (boundaries,
// regions, vertex sequences) lives entirely behind this interface, in
// package sprouts; nothing in the engine packages knows about spots,
// lives, or boundary moves directly.
type Game interface {
	// Compact returns the canonical, stable-alphabet string encoding of
	// the position. Two positions are equal iff their Compact forms agree.
	Compact() string

	// Equal reports value equality, normally implemented by comparing
	// Compact forms.
	Equal(other Game) bool

	// IsNormalImpartial reports whether this game is played under the
	// normal-play convention with impartial moves (the common case,
	// assumed by the default Couple reduction logic). When false,
	// GetOutcome is consulted directly instead of deriving Win/Loss from
	// a nimber.
	IsNormalImpartial() bool

	// IsTerminal reports whether no further game moves exist.
	IsTerminal() bool

	// GetOutcome resolves the outcome directly, used only when
	// IsNormalImpartial is false.
	GetOutcome() pn.Outcome

	// IsMultiLand reports whether the position decomposes into
	// independent subgames (lands). A multi-land position's search
	// children are one per subgame; a single-land position's children
	// come from ComputeChildren.
	IsMultiLand() bool

	// ComputeChildren enumerates the positions reachable by one game move.
	ComputeChildren() []Game

	// GetSubgames returns the independent components of a multi-land
	// position. Meaningless (may return nil) for single-land positions.
	GetSubgames() []Game

	// GetSubgamesNumber is a cheap count of GetSubgames, usable without
	// materializing the subgame list.
	GetSubgamesNumber() int

	// WithSubgames reconstructs a position of the same kind, retaining
	// only the given subgames (used after absorbing database-known
	// nimbers out of some of them).
	WithSubgames(remaining []Game) Game

	// GetLives is an admissible lower bound on remaining plies, used by
	// the default comparers and depth estimators.
	GetLives() uint32

	// EstimateChildrenNumber is a cheap heuristic estimate of
	// ComputeChildren's eventual length, used for move ordering.
	EstimateChildrenNumber() uint64

	// EstimateProofDepth and EstimateDisproofDepth are conservative lower
	// bounds on the number of plies needed to prove/disprove this
	// position, used by DepthProofNumberEstimator.
	EstimateProofDepth() uint64
	EstimateDisproofDepth() uint64
}

// NimberLookup is the read-only view of a nimber database that Couple
// needs in order to reduce known subgames. nimberdb.Database satisfies
// this without nimber importing nimberdb, keeping the dependency one-way.
type NimberLookup interface {
	Get(compactPosition string) (Nimber, bool)
}
