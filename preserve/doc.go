// Package preserve wraps the automaton operations that keep a stochastic
// automaton stochastic, and refuses the configurations that would not.
//
//   - Determinize only runs in the log semiring; anything else is
//     ErrSemiringMismatch.
//   - Minimize never pushes weights.
//   - LeftCompose composes with a left operand that satisfies the
//     left-composition conditions; CheckLeftConditions tests them and
//     WithVerification measures the result.
//   - LocalEpsilonRemoval merges states across input-epsilon arcs without
//     growing the automaton, accepting a merge only when it is equivalent
//     in the tropical semiring and keeps every state sum within the
//     stochasticity envelope of its input in the log semiring.
package preserve
