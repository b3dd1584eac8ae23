// Package fst provides weighted finite-state transducers over float64 costs and
// the generic automaton operations used to build decoding graphs.
//
// Overview:
//
//   - VectorFst is the mutable, eagerly materialised automaton. Any type that
//     implements Fst (Start, Final, Arcs) can be composed, so on-demand
//     automata plug in without being expanded.
//   - Weights are interpreted in a semiring chosen per call (semiring.Tropical
//     or semiring.Log). The automaton itself does not carry a semiring.
//
// Operations:
//
//   - Compose(a, b, opts...)        sequence-filtered composition; matching is
//     driven from either side (WithLeftMatcher).
//   - Determinize(f, k, opts...)    subset construction in semiring k with
//     input-epsilon removal.
//   - Minimize(f, opts...)          partition refinement; pushes weights first
//     unless WithoutPushing() is given.
//   - Push(f, k, delta)             reweights towards the start state.
//   - Connect(f), Accessible, Coaccessible, TopSort.
//   - ShortestDistance, ReverseShortestDistance, TotalWeight, PathWeight.
//   - Linear, Invert, Project, Relabel, IsInputDeterministic,
//     IsOutputDeterministic, MakePrecedingInputSymbolsSameClass.
//
// Conventions:
//
//   - Label 0 is epsilon; labels are otherwise opaque non-negative integers.
//   - Every operation that builds a new automaton returns it trimmed unless
//     its documentation says otherwise.
//   - Iteration order depends only on arc order, so results are reproducible
//     run to run.
//
// Errors:
//
//   - ErrNilFst, ErrNoStart, ErrStateOutOfRange for invalid arguments.
//   - ErrNonDeterminizable when Determinize cannot finish.
//   - ErrNotConverged when a shortest-distance computation does not settle.
//   - ErrComposeTooLarge when composition exceeds WithMaxComposeStates.
package fst
