package fst

import (
	"github.com/katalvlaran/hclg/semiring"
)

// ProjectType selects the side kept by Project.
type ProjectType int

const (
	// ProjectInput copies input labels onto the output side.
	ProjectInput ProjectType = iota
	// ProjectOutput copies output labels onto the input side.
	ProjectOutput
)

// Linear returns the linear transducer labels[i]:labels[i] with weight One.
// An empty sequence gives a single final start state.
func Linear(labels []Label) *VectorFst {
	f := NewVectorFst()
	cur := f.AddState()
	_ = f.SetStart(cur)
	for _, l := range labels {
		next := f.AddState()
		_ = f.AddArc(cur, Arc{ILabel: l, OLabel: l, Weight: semiring.One, NextState: next})
		cur = next
	}
	_ = f.SetFinal(cur, semiring.One)

	return f
}

// Invert swaps input and output labels in place.
func Invert(f *VectorFst) {
	for s := 0; s < f.NumStates(); s++ {
		arcs := f.Arcs(StateID(s))
		for i := range arcs {
			arcs[i].ILabel, arcs[i].OLabel = arcs[i].OLabel, arcs[i].ILabel
		}
	}
}

// Project turns f into an acceptor in place.
func Project(f *VectorFst, side ProjectType) {
	for s := 0; s < f.NumStates(); s++ {
		arcs := f.Arcs(StateID(s))
		for i := range arcs {
			if side == ProjectInput {
				arcs[i].OLabel = arcs[i].ILabel
			} else {
				arcs[i].ILabel = arcs[i].OLabel
			}
		}
	}
}

// Relabel rewrites labels in place through imap and omap (nil keeps a side
// unchanged) and returns how many labels changed.
func Relabel(f *VectorFst, imap, omap func(Label) Label) int {
	changed := 0
	for s := 0; s < f.NumStates(); s++ {
		arcs := f.Arcs(StateID(s))
		for i := range arcs {
			if imap != nil {
				if l := imap(arcs[i].ILabel); l != arcs[i].ILabel {
					arcs[i].ILabel = l
					changed++
				}
			}
			if omap != nil {
				if l := omap(arcs[i].OLabel); l != arcs[i].OLabel {
					arcs[i].OLabel = l
					changed++
				}
			}
		}
	}

	return changed
}

// IsInputDeterministic reports whether no state has two arcs with the same
// input label and no arc has an epsilon input.
func IsInputDeterministic(f ExpandedFst) bool {
	return isDeterministic(f, func(a Arc) Label { return a.ILabel })
}

// IsOutputDeterministic reports whether no state has two arcs with the same
// output label and no arc has an epsilon output.
func IsOutputDeterministic(f ExpandedFst) bool {
	return isDeterministic(f, func(a Arc) Label { return a.OLabel })
}

func isDeterministic(f ExpandedFst, side func(Arc) Label) bool {
	seen := make(map[Label]struct{})
	for s := 0; s < f.NumStates(); s++ {
		clear(seen)
		for _, a := range f.Arcs(StateID(s)) {
			l := side(a)
			if l == Epsilon {
				return false
			}
			if _, dup := seen[l]; dup {
				return false
			}
			seen[l] = struct{}{}
		}
	}

	return true
}

// MakePrecedingInputSymbolsSameClass splits states so that every arc entering
// a state has an input label of the same class. classOf maps an input label
// to its class; when startIsEpsilon is set the start state counts as entered
// by an arc of class classOf(Epsilon). Copies of a split state duplicate its
// arcs and final weight, so path weights are unchanged.
// Complexity: O(V + E) plus the copied arcs.
func MakePrecedingInputSymbolsSameClass(f *VectorFst, startIsEpsilon bool, classOf func(Label) int) {
	n := f.NumStates()
	if n == 0 || f.Start() == NoState {
		return
	}

	// 1. First class seen for each state; the start may be pinned to epsilon.
	owner := make([]int, n)
	has := make([]bool, n)
	if startIsEpsilon {
		owner[f.Start()] = classOf(Epsilon)
		has[f.Start()] = true
	}
	type split struct {
		state StateID
		class int
	}
	copies := make(map[split]StateID)
	var pending []split
	for s := 0; s < n; s++ {
		for _, a := range f.Arcs(StateID(s)) {
			c := classOf(a.ILabel)
			if !has[a.NextState] {
				owner[a.NextState], has[a.NextState] = c, true

				continue
			}
			if owner[a.NextState] == c {
				continue
			}
			key := split{state: a.NextState, class: c}
			if _, ok := copies[key]; !ok {
				copies[key] = NoState
				pending = append(pending, key)
			}
		}
	}
	if len(pending) == 0 {
		return
	}

	// 2. Create one copy per (state, foreign class).
	for _, key := range pending {
		id := f.AddState()
		copies[key] = id
		_ = f.SetFinal(id, f.Final(key.state))
	}
	for _, key := range pending {
		_ = f.SetArcs(copies[key], append([]Arc(nil), f.Arcs(key.state)...))
	}

	// 3. Redirect every arc whose class differs from its target's owner.
	for s := 0; s < f.NumStates(); s++ {
		arcs := f.Arcs(StateID(s))
		for i := range arcs {
			t := arcs[i].NextState
			if int(t) >= n {
				continue
			}
			c := classOf(arcs[i].ILabel)
			if owner[t] == c {
				continue
			}
			arcs[i].NextState = copies[split{state: t, class: c}]
		}
	}
}
