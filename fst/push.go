package fst

import (
	"fmt"

	"github.com/katalvlaran/hclg/semiring"
)

// Push reweights f towards the start state in semiring k: after pushing, the
// ⊕-sum of leaving arc weights plus final weight of every coaccessible state
// is One, and the total weight of the automaton sits on the start state's
// arcs. Path weights are unchanged.
//
// This is the normalisation generic minimizers perform before merging states.
// A non-stochastic automaton comes out stochastic everywhere except at the
// start, which is why the graph-construction core never calls it.
//
// Complexity: O(shortest distance) + O(V + E).
func Push(f *VectorFst, k semiring.Kind, delta float64) error {
	if f == nil {
		return ErrNilFst
	}
	start := f.Start()
	if start == NoState {
		return nil
	}
	pot, err := ReverseShortestDistance(f, k, delta)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}

	// 1. Detect arcs entering the start state; if any exist the total weight
	//    cannot be folded into the start without changing cycle weights.
	startHasIncoming := false
	for s := 0; s < f.NumStates() && !startHasIncoming; s++ {
		for _, a := range f.Arcs(StateID(s)) {
			if a.NextState == start {
				startHasIncoming = true

				break
			}
		}
	}

	// 2. Reweight every arc and final weight with the potentials.
	origStartArcs := append([]Arc(nil), f.Arcs(start)...)
	origStartFinal := f.Final(start)
	for s := 0; s < f.NumStates(); s++ {
		sid := StateID(s)
		ps := pot[s]
		if semiring.IsZero(ps) {
			continue
		}
		arcs := f.Arcs(sid)
		for i := range arcs {
			pn := pot[arcs[i].NextState]
			if semiring.IsZero(pn) {
				continue
			}
			arcs[i].Weight = semiring.Divide(semiring.Times(arcs[i].Weight, pn), ps)
		}
		if fw := f.Final(sid); !semiring.IsZero(fw) {
			_ = f.SetFinal(sid, semiring.Divide(fw, ps))
		}
	}

	// 3. Re-attach the total weight at a start state without incoming arcs.
	total := pot[start]
	if semiring.IsZero(total) {
		return nil
	}
	if startHasIncoming {
		ns := f.AddState()
		for _, a := range origStartArcs {
			pn := pot[a.NextState]
			if !semiring.IsZero(pn) {
				a.Weight = semiring.Times(a.Weight, pn)
			}
			_ = f.AddArc(ns, a)
		}
		_ = f.SetFinal(ns, origStartFinal)
		_ = f.SetStart(ns)

		return nil
	}
	arcs := f.Arcs(start)
	for i := range arcs {
		arcs[i].Weight = semiring.Times(arcs[i].Weight, total)
	}
	if fw := f.Final(start); !semiring.IsZero(fw) {
		_ = f.SetFinal(start, semiring.Times(fw, total))
	}

	return nil
}
