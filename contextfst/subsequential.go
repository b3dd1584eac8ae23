package contextfst

import (
	"fmt"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
)

// AddSubsequentialLoop prepares f for composition on the right of a
// ContextFst: every final state gets an arc subseq:ε carrying its final
// weight into a new super-final state, which loops on subseq:ε. Original
// final weights are kept for context geometries that need no subsequential
// symbol. f is modified in place.
func AddSubsequentialLoop(f *fst.VectorFst, subseq fst.Label) error {
	if f == nil {
		return fst.ErrNilFst
	}
	if subseq <= 0 {
		return fmt.Errorf("%w: subsequential symbol %d must be positive", ErrInvalidParameters, subseq)
	}
	if f.Start() == fst.NoState {
		return nil
	}
	n := f.NumStates()
	super := f.AddState()
	for s := 0; s < n; s++ {
		w := f.Final(fst.StateID(s))
		if semiring.IsZero(w) {
			continue
		}
		if err := f.AddArc(fst.StateID(s), fst.Arc{ILabel: subseq, OLabel: fst.Epsilon, Weight: w, NextState: super}); err != nil {
			return err
		}
	}
	if err := f.AddArc(super, fst.Arc{ILabel: subseq, OLabel: fst.Epsilon, Weight: semiring.One, NextState: super}); err != nil {
		return err
	}

	return f.SetFinal(super, semiring.One)
}
