// SPDX-License-Identifier: MIT
//
// File: vector.go
// Role: the mutable, eagerly materialised automaton (VectorFst).
// Policy:
//   - States are dense ids 0..NumStates-1; arcs are stored per state.
//   - VectorFst is a value-like object: every pipeline stage produces a fresh
//     one, so it carries no locks. Concurrent readers are safe as long as no
//     writer runs.
//   - Mutators validate state ids and return ErrStateOutOfRange instead of
//     panicking.

package fst

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/hclg/semiring"
)

// vstate is one state of a VectorFst.
type vstate struct {
	final float64 // semiring.Zero if non-final
	arcs  []Arc   // outgoing arcs in insertion order
}

// VectorFst is the general-purpose mutable automaton.
type VectorFst struct {
	start  StateID
	states []vstate
}

// NewVectorFst returns an empty automaton with no start state.
// Complexity: O(1).
func NewVectorFst() *VectorFst {
	return &VectorFst{start: NoState}
}

// Start implements Fst.
func (f *VectorFst) Start() StateID { return f.start }

// NumStates implements ExpandedFst.
func (f *VectorFst) NumStates() int { return len(f.states) }

// Final implements Fst. Out-of-range states report Zero.
func (f *VectorFst) Final(s StateID) float64 {
	if !f.valid(s) {
		return semiring.Zero
	}

	return f.states[s].final
}

// Arcs implements Fst. The returned slice aliases internal storage.
func (f *VectorFst) Arcs(s StateID) []Arc {
	if !f.valid(s) {
		return nil
	}

	return f.states[s].arcs
}

// NumArcs returns the out-degree of s.
func (f *VectorFst) NumArcs(s StateID) int {
	if !f.valid(s) {
		return 0
	}

	return len(f.states[s].arcs)
}

// TotalArcs returns the number of arcs in the automaton.
// Complexity: O(V).
func (f *VectorFst) TotalArcs() int {
	n := 0
	for i := range f.states {
		n += len(f.states[i].arcs)
	}

	return n
}

// AddState appends a new non-final state and returns its id.
// Complexity: O(1) amortized.
func (f *VectorFst) AddState() StateID {
	f.states = append(f.states, vstate{final: semiring.Zero})

	return StateID(len(f.states) - 1)
}

// AddStates appends n states.
func (f *VectorFst) AddStates(n int) {
	for i := 0; i < n; i++ {
		f.AddState()
	}
}

// Reserve grows the state capacity without adding states.
func (f *VectorFst) Reserve(n int) {
	if n > cap(f.states) {
		grown := make([]vstate, len(f.states), n)
		copy(grown, f.states)
		f.states = grown
	}
}

// SetStart sets the start state.
func (f *VectorFst) SetStart(s StateID) error {
	if !f.valid(s) {
		return fmt.Errorf("SetStart(%d): %w", s, ErrStateOutOfRange)
	}
	f.start = s

	return nil
}

// SetFinal sets the final weight of s; semiring.Zero makes s non-final.
func (f *VectorFst) SetFinal(s StateID, w float64) error {
	if !f.valid(s) {
		return fmt.Errorf("SetFinal(%d): %w", s, ErrStateOutOfRange)
	}
	f.states[s].final = w

	return nil
}

// AddArc appends an arc leaving s.
func (f *VectorFst) AddArc(s StateID, a Arc) error {
	if !f.valid(s) {
		return fmt.Errorf("AddArc(%d): %w", s, ErrStateOutOfRange)
	}
	if !f.valid(a.NextState) {
		return fmt.Errorf("AddArc(%d→%d): %w", s, a.NextState, ErrStateOutOfRange)
	}
	f.states[s].arcs = append(f.states[s].arcs, a)

	return nil
}

// SetArcs replaces every arc leaving s.
func (f *VectorFst) SetArcs(s StateID, arcs []Arc) error {
	if !f.valid(s) {
		return fmt.Errorf("SetArcs(%d): %w", s, ErrStateOutOfRange)
	}
	for _, a := range arcs {
		if !f.valid(a.NextState) {
			return fmt.Errorf("SetArcs(%d→%d): %w", s, a.NextState, ErrStateOutOfRange)
		}
	}
	f.states[s].arcs = arcs

	return nil
}

// DeleteArcs removes every arc leaving s.
func (f *VectorFst) DeleteArcs(s StateID) {
	if f.valid(s) {
		f.states[s].arcs = nil
	}
}

// DeleteStates keeps only states with keep[s] == true, renumbering the
// survivors densely and dropping arcs into removed states. If the start state
// is removed the automaton becomes empty.
// Complexity: O(V + E).
func (f *VectorFst) DeleteStates(keep []bool) {
	newID := make([]StateID, len(f.states))
	next := StateID(0)
	for s := range f.states {
		if s < len(keep) && keep[s] {
			newID[s] = next
			next++
		} else {
			newID[s] = NoState
		}
	}

	if f.start == NoState || newID[f.start] == NoState {
		f.states = nil
		f.start = NoState

		return
	}

	out := make([]vstate, 0, int(next))
	for s := range f.states {
		if newID[s] == NoState {
			continue
		}
		st := f.states[s]
		arcs := st.arcs[:0]
		for _, a := range st.arcs {
			if d := newID[a.NextState]; d != NoState {
				a.NextState = d
				arcs = append(arcs, a)
			}
		}
		st.arcs = arcs
		out = append(out, st)
	}
	f.start = newID[f.start]
	f.states = out
}

// Copy returns a deep copy.
// Complexity: O(V + E).
func (f *VectorFst) Copy() *VectorFst {
	out := &VectorFst{start: f.start, states: make([]vstate, len(f.states))}
	for s, st := range f.states {
		out.states[s].final = st.final
		out.states[s].arcs = append([]Arc(nil), st.arcs...)
	}

	return out
}

// SortArcs orders the arcs of every state by (ILabel, OLabel, NextState,
// Weight). Iteration order of every algorithm in this package depends only on
// arc order, so sorting makes their output canonical.
// Complexity: O(E log d).
func (f *VectorFst) SortArcs() {
	for s := range f.states {
		arcs := f.states[s].arcs
		sort.SliceStable(arcs, func(i, j int) bool { return arcLess(arcs[i], arcs[j]) })
	}
}

// FindInput implements InputMatcher by linear scan.
func (f *VectorFst) FindInput(s StateID, ilabel Label) []Arc {
	var out []Arc
	for _, a := range f.Arcs(s) {
		if a.ILabel == ilabel {
			out = append(out, a)
		}
	}

	return out
}

// FindOutput implements OutputMatcher by linear scan.
func (f *VectorFst) FindOutput(s StateID, olabel Label) []Arc {
	var out []Arc
	for _, a := range f.Arcs(s) {
		if a.OLabel == olabel {
			out = append(out, a)
		}
	}

	return out
}

// String renders the automaton in the AT&T text layout, one arc or final
// state per line, mainly for test failure messages.
func (f *VectorFst) String() string {
	var b []byte
	for s := range f.states {
		for _, a := range f.states[s].arcs {
			b = fmt.Appendf(b, "%d\t%d\t%d\t%d\t%g\n", s, a.NextState, a.ILabel, a.OLabel, a.Weight)
		}
	}
	for s := range f.states {
		if w := f.states[s].final; !semiring.IsZero(w) {
			b = fmt.Appendf(b, "%d\t%g\n", s, w)
		}
	}

	return string(b)
}

func (f *VectorFst) valid(s StateID) bool {
	return s >= 0 && int(s) < len(f.states)
}

func arcLess(a, b Arc) bool {
	if a.ILabel != b.ILabel {
		return a.ILabel < b.ILabel
	}
	if a.OLabel != b.OLabel {
		return a.OLabel < b.OLabel
	}
	if a.NextState != b.NextState {
		return a.NextState < b.NextState
	}

	return a.Weight < b.Weight
}
