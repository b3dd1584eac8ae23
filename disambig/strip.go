package disambig

import (
	"fmt"

	"github.com/katalvlaran/hclg/fst"
)

// MarkBackoff relabels the input-epsilon arcs of g to backoff (word-level
// #0), keeping their outputs. It returns the number of arcs changed.
func MarkBackoff(g *fst.VectorFst, backoff fst.Label) int {
	return fst.Relabel(g, func(l fst.Label) fst.Label {
		if l == fst.Epsilon {
			return backoff
		}

		return l
	}, nil)
}

// Strip replaces every input label in set with epsilon and returns the number
// of arcs changed. Stripping twice changes nothing the second time.
func Strip(f *fst.VectorFst, set *Set) int {
	return fst.Relabel(f, stripper(set), nil)
}

// StripOutput is Strip for the output side.
func StripOutput(f *fst.VectorFst, set *Set) int {
	return fst.Relabel(f, nil, stripper(set))
}

func stripper(set *Set) func(fst.Label) fst.Label {
	return func(l fst.Label) fst.Label {
		if set.Contains(l) {
			return fst.Epsilon
		}

		return l
	}
}

// AssertAbsent returns ErrDisambigRemaining, naming the first offending state
// and label, if any input label of f belongs to set.
func AssertAbsent(f fst.ExpandedFst, set *Set) error {
	for s := 0; s < f.NumStates(); s++ {
		for _, a := range f.Arcs(fst.StateID(s)) {
			if set.Contains(a.ILabel) {
				return fmt.Errorf("%w: label %d on an arc leaving state %d", ErrDisambigRemaining, a.ILabel, s)
			}
		}
	}

	return nil
}
