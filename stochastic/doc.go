// Package stochastic measures how far a weighted automaton is from being
// stochastic and checks that graph-construction stages never make it worse.
//
// Overview:
//
//   - For every state q, the state sum is the ⊕ of the weights of q's leaving
//     arcs and q's final weight. An automaton is stochastic when every state
//     sum is One (a linear probability mass of exactly 1).
//   - Measure reports the smallest and largest state sum as Bounds, in the log
//     domain: Min/Max are log(linear sum), so 0 means exactly stochastic,
//     negative values mean mass is missing and positive values mean excess.
//   - Bounds of a stage's output are compared with those of its input by
//     CheckNotWorse: the new bounds must stay within the envelope of the old
//     ones, [min(Min, 0), max(Max, 0)], up to a tolerance.
//
// Stochasticity is only meaningful in the log semiring; the tropical variant
// is provided because the same state sum in the tropical semiring is a useful
// diagnostic of the best leaving path.
//
// Complexity:
//
//   - Measure, StateSums: O(V + E).
//
// Errors:
//
//   - ErrEmpty                    the automaton has no start state or no state
//     carrying probability mass.
//   - ErrStochasticityRegression  wrapped by CheckNotWorse with both bounds.
package stochastic
