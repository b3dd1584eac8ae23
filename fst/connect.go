// Connect trims an automaton to the states that are both accessible (reachable
// from the start) and coaccessible (can reach a final state).
//
// The traversal is a depth-first walk in the same shape as a classic
// White/Gray/Black DFS, driven by an explicit stack so that long HMM chains
// cannot exhaust the goroutine stack.
//
// Complexity:
//
//   - Time:   O(V + E)
//   - Memory: O(V + E) for the reverse adjacency used by the coaccessible pass.
package fst

import "github.com/katalvlaran/hclg/semiring"

// visit colours.
const (
	white = iota // not discovered
	gray         // on the stack
	black        // finished
)

// stateWalker encapsulates the state of one depth-first walk over ids 0..n-1.
type stateWalker struct {
	colour    []uint8
	succ      func(s StateID) []StateID
	onFinish  func(s StateID)
	finishSeq []StateID
}

func newStateWalker(n int, succ func(s StateID) []StateID) *stateWalker {
	return &stateWalker{colour: make([]uint8, n), succ: succ}
}

// walk performs a DFS from root, recording post-order in finishSeq.
func (w *stateWalker) walk(root StateID) {
	if w.colour[root] != white {
		return
	}
	type frame struct {
		s    StateID
		next []StateID
	}
	w.colour[root] = gray
	stack := []frame{{s: root, next: w.succ(root)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if len(top.next) == 0 {
			// 1. All successors explored: finish the state.
			w.colour[top.s] = black
			w.finishSeq = append(w.finishSeq, top.s)
			if w.onFinish != nil {
				w.onFinish(top.s)
			}
			stack = stack[:len(stack)-1]

			continue
		}
		// 2. Descend into the next undiscovered successor.
		nid := top.next[0]
		top.next = top.next[1:]
		if w.colour[nid] == white {
			w.colour[nid] = gray
			stack = append(stack, frame{s: nid, next: w.succ(nid)})
		}
	}
}

// Accessible returns, for every state, whether it is reachable from the start.
func Accessible(f ExpandedFst) []bool {
	n := f.NumStates()
	out := make([]bool, n)
	start := f.Start()
	if start == NoState || n == 0 {
		return out
	}
	w := newStateWalker(n, func(s StateID) []StateID {
		arcs := f.Arcs(s)
		next := make([]StateID, len(arcs))
		for i, a := range arcs {
			next[i] = a.NextState
		}

		return next
	})
	w.walk(start)
	for s, c := range w.colour {
		out[s] = c != white
	}

	return out
}

// Coaccessible returns, for every state, whether a final state is reachable
// from it.
func Coaccessible(f ExpandedFst) []bool {
	n := f.NumStates()
	out := make([]bool, n)
	reverse := make([][]StateID, n)
	for s := 0; s < n; s++ {
		for _, a := range f.Arcs(StateID(s)) {
			reverse[a.NextState] = append(reverse[a.NextState], StateID(s))
		}
	}
	w := newStateWalker(n, func(s StateID) []StateID { return reverse[s] })
	for s := 0; s < n; s++ {
		if !semiring.IsZero(f.Final(StateID(s))) {
			w.walk(StateID(s))
		}
	}
	for s, c := range w.colour {
		out[s] = c != white
	}

	return out
}

// Connect removes every state that is not both accessible and coaccessible.
// The automaton becomes empty (Start()==NoState) when the start state cannot
// reach a final state. f is modified in place and returned for chaining.
func Connect(f *VectorFst) *VectorFst {
	acc := Accessible(f)
	coacc := Coaccessible(f)
	keep := make([]bool, len(acc))
	for s := range keep {
		keep[s] = acc[s] && coacc[s]
	}
	f.DeleteStates(keep)

	return f
}

// TopSort returns the states in topological order, or ok=false if the
// accessible part of the automaton contains a cycle.
func TopSort(f ExpandedFst) (order []StateID, ok bool) {
	n := f.NumStates()
	if f.Start() == NoState {
		return nil, true
	}
	cyclic := false
	var w *stateWalker
	w = newStateWalker(n, func(s StateID) []StateID {
		arcs := f.Arcs(s)
		next := make([]StateID, 0, len(arcs))
		for _, a := range arcs {
			if w.colour[a.NextState] == gray {
				cyclic = true
			}
			next = append(next, a.NextState)
		}

		return next
	})
	w.walk(f.Start())
	if cyclic {
		return nil, false
	}
	order = make([]StateID, len(w.finishSeq))
	for i, s := range w.finishSeq {
		order[len(order)-1-i] = s
	}

	return order, true
}
