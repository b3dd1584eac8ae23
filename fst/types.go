// This file declares Label, StateID, Arc, the read-only Fst interfaces, the
// matcher interfaces used by composition, and the package sentinel errors.
//
// Errors:
//
//	ErrNilFst              - a nil automaton was passed to an operation.
//	ErrNoStart             - the automaton has no start state.
//	ErrStateOutOfRange     - a StateID does not reference an existing state.
//	ErrNonDeterminizable   - determinization failed (twins property or
//	                         non-functional epsilon ambiguity).
//	ErrNotConverged        - an iterative weight computation did not settle.
//	ErrNotDeterministic    - an operation required a deterministic input.

package fst

import (
	"errors"
)

// Label is an arc label. Labels are non-negative; 0 is epsilon.
type Label int

// StateID identifies a state inside one automaton.
type StateID int

const (
	// Epsilon is the reserved empty label.
	Epsilon Label = 0

	// NoLabel marks the absence of a label.
	NoLabel Label = -1

	// NoState marks the absence of a state (e.g. an empty automaton's start).
	NoState StateID = -1
)

// Sentinel errors for automaton operations.
var (
	// ErrNilFst indicates a nil automaton argument.
	ErrNilFst = errors.New("fst: automaton is nil")

	// ErrNoStart indicates the automaton has no start state.
	ErrNoStart = errors.New("fst: automaton has no start state")

	// ErrStateOutOfRange indicates a state id outside [0, NumStates).
	ErrStateOutOfRange = errors.New("fst: state id out of range")

	// ErrNonDeterminizable indicates determinization could not terminate or
	// found two paths with the same input reaching one state with different
	// outputs.
	ErrNonDeterminizable = errors.New("fst: input is not determinizable")

	// ErrNotConverged indicates an iterative weight computation exceeded its
	// iteration budget.
	ErrNotConverged = errors.New("fst: weight computation did not converge")

	// ErrNotDeterministic indicates an operation that needs determinism
	// received a non-deterministic automaton.
	ErrNotDeterministic = errors.New("fst: automaton is not deterministic")
)

// Arc is one transition: ILabel:OLabel/Weight → NextState.
type Arc struct {
	// ILabel is the input label (0 = epsilon).
	ILabel Label

	// OLabel is the output label (0 = epsilon).
	OLabel Label

	// Weight is a cost in the semiring chosen by the operation.
	Weight float64

	// NextState is the destination state.
	NextState StateID
}

// Fst is the read-only view shared by eager and on-demand automata.
// Arcs must return a slice the caller does not mutate.
type Fst interface {
	// Start returns the start state or NoState for an empty automaton.
	Start() StateID

	// Final returns the final weight of s (semiring.Zero if non-final).
	Final(s StateID) float64

	// Arcs returns the arcs leaving s.
	Arcs(s StateID) []Arc
}

// ExpandedFst is an Fst whose state set is known up front.
type ExpandedFst interface {
	Fst

	// NumStates returns the number of states; ids are 0..NumStates-1.
	NumStates() int
}

// InputMatcher finds the arcs leaving a state with a given input label.
type InputMatcher interface {
	FindInput(s StateID, ilabel Label) []Arc
}

// OutputMatcher finds the arcs leaving a state with a given output label.
// Implementations may create the arc on demand instead of expanding the
// whole state.
type OutputMatcher interface {
	FindOutput(s StateID, olabel Label) []Arc
}
