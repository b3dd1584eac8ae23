package hclg

import (
	"fmt"
	"math"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
)

// TransitionModel tells AddSelfLoops which HMM state an input label enters
// and what that state's self-loop looks like.
type TransitionModel interface {
	// Class returns the HMM state entered by label, or a negative value.
	Class(label fst.Label) int

	// SelfLoop returns the self-loop label of a class and its probability.
	SelfLoop(class int) (fst.Label, float64, bool)
}

// AddSelfLoops puts the HMM self-loops back into f, in place.
//
// States are first split so that all arcs entering a state share one class.
// Then every state of class c with loop probability p gets a loop arc of
// cost -scale·log p, and its leaving arcs and final weight are multiplied by
// -scale·log(1-p). States entered by epsilon or by labels without a class
// are left alone. With scale 1 a stochastic f stays stochastic.
func AddSelfLoops(f *fst.VectorFst, tm TransitionModel, scale float64) error {
	if f == nil {
		return fst.ErrNilFst
	}
	if tm == nil {
		return fmt.Errorf("%w: nil transition model", ErrGraphConstruction)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: self-loop scale %v", ErrInvalidConfig, scale)
	}
	if f.Start() == fst.NoState {
		return nil
	}

	// 1. One class per state.
	fst.MakePrecedingInputSymbolsSameClass(f, true, tm.Class)
	n := f.NumStates()
	class := make([]int, n)
	for i := range class {
		class[i] = -1
	}
	class[f.Start()] = tm.Class(fst.Epsilon)
	for s := 0; s < n; s++ {
		for _, a := range f.Arcs(fst.StateID(s)) {
			class[a.NextState] = tm.Class(a.ILabel)
		}
	}

	// 2. Loops and forward scaling.
	for s := 0; s < n; s++ {
		c := class[s]
		if c < 0 {
			continue
		}
		loop, prob, ok := tm.SelfLoop(c)
		if !ok {
			return fmt.Errorf("%w: no self-loop for class %d (state %d)", ErrGraphConstruction, c, s)
		}
		if !(prob > 0 && prob < 1) {
			return fmt.Errorf("%w: self-loop probability %v of class %d outside (0,1)", ErrGraphConstruction, prob, c)
		}
		stay := -scale * math.Log(prob)
		leave := -scale * math.Log1p(-prob)

		src := fst.StateID(s)
		arcs := f.Arcs(src)
		next := make([]fst.Arc, 0, len(arcs)+1)
		for _, a := range arcs {
			a.Weight = semiring.Times(a.Weight, leave)
			next = append(next, a)
		}
		next = append(next, fst.Arc{ILabel: loop, OLabel: fst.Epsilon, Weight: stay, NextState: src})
		if err := f.SetArcs(src, next); err != nil {
			return err
		}
		if w := f.Final(src); !semiring.IsZero(w) {
			if err := f.SetFinal(src, semiring.Times(w, leave)); err != nil {
				return err
			}
		}
	}

	return nil
}
