package yaep

import (
	"github.com/earley-go/yaep/forest"
)

// Options is the per-parse configuration surface. A grammar is immutable
// after analysis, but its options may change between parses.
type Options struct {
	// LookaheadLevel selects prediction filtering: 0 = none, 1 = static
	// context sets, 2 = dynamic context sets. Out-of-range values are
	// clamped.
	LookaheadLevel int
	// OneParse builds a single tree instead of a packed DAG of every
	// parse. The ambiguity flag is reported either way.
	OneParse bool
	// Cost makes Anode costs include their subtree and prunes the
	// translation to minimum-cost derivations.
	Cost bool
	// ErrorRecovery enables bounded recovery on syntax errors.
	ErrorRecovery bool
	// RecoveryMatch is the number of consecutive successful scans
	// required to accept a recovery; 0 selects the default of 3.
	RecoveryMatch int
	// DebugLevel controls diagnostic emission only; it has no effect on
	// parse semantics.
	DebugLevel int
	// TreeArena, if set, receives the translation nodes so they survive
	// parse teardown under caller control.
	TreeArena *forest.Arena
}

// DefaultOptions returns the options a fresh grammar starts with:
// one-parse with static lookahead, no cost selection, no recovery.
func DefaultOptions() Options {
	return Options{
		LookaheadLevel: 1,
		OneParse:       true,
	}
}
