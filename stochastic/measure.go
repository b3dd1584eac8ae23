package stochastic

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
)

// Sentinel errors.
var (
	// ErrEmpty indicates an automaton without probability mass to measure.
	ErrEmpty = errors.New("stochastic: automaton is empty")

	// ErrStochasticityRegression indicates bounds that moved away from zero.
	ErrStochasticityRegression = errors.New("stochastic: bounds regressed")
)

// Bounds is the (min, max) of the state sums of an automaton, in the log
// domain (log of the linear sum; 0 is exactly stochastic).
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// IsStochastic reports whether both extremes are within delta of zero.
func (b Bounds) IsStochastic(delta float64) bool {
	return math.Abs(b.Min) <= delta && math.Abs(b.Max) <= delta
}

// Distance is the largest deviation from zero of either extreme.
func (b Bounds) Distance() float64 {
	return math.Max(math.Abs(b.Min), math.Abs(b.Max))
}

// Envelope widens b to include zero.
func (b Bounds) Envelope() Bounds {
	return Bounds{Min: math.Min(b.Min, 0), Max: math.Max(b.Max, 0)}
}

// Contains reports whether o lies within b up to tol.
func (b Bounds) Contains(o Bounds, tol float64) bool {
	return o.Min >= b.Min-tol && o.Max <= b.Max+tol
}

// Union returns the smallest bounds containing b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{Min: math.Min(b.Min, o.Min), Max: math.Max(b.Max, o.Max)}
}

// String renders the bounds as "[min, max]".
func (b Bounds) String() string {
	return fmt.Sprintf("[%.6g, %.6g]", b.Min, b.Max)
}

// CheckNotWorse returns a wrapped ErrStochasticityRegression when next leaves
// the envelope of prev by more than tol.
func CheckNotWorse(prev, next Bounds, tol float64) error {
	env := prev.Envelope()
	if env.Contains(next, tol) {
		return nil
	}

	return fmt.Errorf("%w: %v outside %v (tolerance %g)", ErrStochasticityRegression, next, env, tol)
}

// StateSums returns the log-domain state sum of every state in semiring k:
// log of the linear ⊕ of leaving arc weights and final weight. A state
// without arcs or final weight gets -Inf.
func StateSums(f fst.ExpandedFst, k semiring.Kind) []float64 {
	n := f.NumStates()
	out := make([]float64, n)
	for s := 0; s < n; s++ {
		sum := f.Final(fst.StateID(s))
		for _, a := range f.Arcs(fst.StateID(s)) {
			sum = k.Plus(sum, a.Weight)
		}
		out[s] = -sum
	}

	return out
}

// Measure returns the bounds of f in semiring k. States carrying no mass at
// all (a state sum of Zero) are skipped: they exist only in untrimmed input.
func Measure(f fst.ExpandedFst, k semiring.Kind) (Bounds, error) {
	if f == nil || f.Start() == fst.NoState {
		return Bounds{}, ErrEmpty
	}
	b := Bounds{Min: math.Inf(1), Max: math.Inf(-1)}
	seen := false
	for _, v := range StateSums(f, k) {
		if math.IsInf(v, -1) {
			continue
		}
		seen = true
		b.Min = math.Min(b.Min, v)
		b.Max = math.Max(b.Max, v)
	}
	if !seen {
		return Bounds{}, ErrEmpty
	}

	return b, nil
}

// Worst returns the state whose sum is farthest from zero, with its value.
// It is NoState for an automaton without mass.
func Worst(f fst.ExpandedFst, k semiring.Kind) (fst.StateID, float64) {
	worst, val := fst.NoState, 0.0
	for s, v := range StateSums(f, k) {
		if math.IsInf(v, -1) {
			continue
		}
		if worst == fst.NoState || math.Abs(v) > math.Abs(val) {
			worst, val = fst.StateID(s), v
		}
	}

	return worst, val
}
