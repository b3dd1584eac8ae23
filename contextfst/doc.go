// Package contextfst implements the context-dependency transducer C on demand.
//
// C maps sequences of phone-in-context labels (input) to sequences of phones
// (output). With context width N and central position P, a state remembers the
// last N-1 output symbols; reading output phone o from history h forms the
// window h+o, whose phone at position P is the phone being identified. Its
// input label is the arena id of that window.
//
// Overview:
//
//   - Nothing is enumerated up front. Input labels are allocated in an
//     ILabelInfo arena the first time a window is seen; states are allocated
//     the first time a history is reached. Both grow monotonically.
//   - At the start of an utterance the window has no central phone yet; those
//     arcs carry #-1 (PseudoEpsilon) instead of epsilon so that C stays
//     input-deterministic.
//   - At the end, the subsequential symbol $ pushes the last phones through the
//     centre: exactly N-P-1 of them are accepted, and a phone never follows $.
//     AddSubsequentialLoop prepares LG to supply them.
//   - A disambiguation symbol d is a self-loop with input window {-d}, so it
//     survives composition and determinization like any other unit.
//   - Matcher answers one (state, output label) query at a time, creating at
//     most one arc and one destination state.
//
// Concurrency:
//
//   - Queries from several goroutines are safe. A read lock covers cache hits;
//     a single exclusive lock covers discovering a window and allocating its
//     label and destination state.
//
// Errors:
//
//   - ErrInvalidParameters  N < 1, P outside [0, N), no phones, non-positive
//     labels, or a label used for two roles.
package contextfst
