package fst

import (
	"github.com/katalvlaran/hclg/semiring"
)

// TotalWeight returns the ⊕ over every accepting path of f in semiring k.
// An empty automaton weighs Zero.
func TotalWeight(f ExpandedFst, k semiring.Kind, delta float64) (float64, error) {
	dist, err := ShortestDistance(f, k, delta)
	if err != nil {
		return semiring.Zero, err
	}
	total := semiring.Zero
	for s, d := range dist {
		if fw := f.Final(StateID(s)); !semiring.IsZero(fw) && !semiring.IsZero(d) {
			total = k.Plus(total, semiring.Times(d, fw))
		}
	}

	return total, nil
}

// PathWeight returns the ⊕ over every accepting path of f whose input side,
// with epsilons removed, spells input. Zero means f rejects input.
func PathWeight(f Fst, input []Label, k semiring.Kind) (float64, error) {
	restricted, err := Compose(Linear(input), f)
	if err != nil {
		return semiring.Zero, err
	}

	return TotalWeight(restricted, k, semiring.DefaultDelta/1024)
}
