package stochastic_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
	"github.com/katalvlaran/hclg/stochastic"
)

// fork builds 0 -> 1 (final) with two arcs of linear probabilities p and q.
func fork(t *testing.T, p, q float64) *fst.VectorFst {
	t.Helper()
	f := fst.NewVectorFst()
	f.AddStates(2)
	require.NoError(t, f.SetStart(0))
	require.NoError(t, f.AddArc(0, fst.Arc{ILabel: 1, OLabel: 1, Weight: -math.Log(p), NextState: 1}))
	require.NoError(t, f.AddArc(0, fst.Arc{ILabel: 2, OLabel: 2, Weight: -math.Log(q), NextState: 1}))
	require.NoError(t, f.SetFinal(1, semiring.One))

	return f
}

func TestMeasure_Stochastic(t *testing.T) {
	b, err := stochastic.Measure(fork(t, 0.3, 0.7), semiring.Log)
	require.NoError(t, err)
	assert.True(t, b.IsStochastic(1e-9), "bounds %v", b)
	assert.InDelta(t, 0.0, b.Distance(), 1e-9)
}

func TestMeasure_ExcessMass(t *testing.T) {
	// 0.5 + 0.7 = 1.2 at the start; the final state is exactly 1.
	b, err := stochastic.Measure(fork(t, 0.5, 0.7), semiring.Log)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, b.Min, 1e-9)
	assert.InDelta(t, math.Log(1.2), b.Max, 1e-9)
	assert.False(t, b.IsStochastic(1e-3))

	worst, v := stochastic.Worst(fork(t, 0.5, 0.7), semiring.Log)
	assert.Equal(t, fst.StateID(0), worst)
	assert.InDelta(t, math.Log(1.2), v, 1e-9)
}

func TestMeasure_TropicalIsBestArc(t *testing.T) {
	b, err := stochastic.Measure(fork(t, 0.5, 0.25), semiring.Tropical)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(0.5), b.Min, 1e-12)
	assert.InDelta(t, 0.0, b.Max, 1e-12)
}

func TestMeasure_Empty(t *testing.T) {
	_, err := stochastic.Measure(fst.NewVectorFst(), semiring.Log)
	assert.ErrorIs(t, err, stochastic.ErrEmpty)

	f := fst.NewVectorFst()
	require.NoError(t, f.SetStart(f.AddState()))
	_, err = stochastic.Measure(f, semiring.Log)
	assert.ErrorIs(t, err, stochastic.ErrEmpty, "a lone non-final state has no mass")
}

func TestStateSums_DeadStateIsNegInf(t *testing.T) {
	f := fork(t, 0.5, 0.5)
	f.AddState()
	sums := stochastic.StateSums(f, semiring.Log)
	require.Len(t, sums, 3)
	assert.True(t, math.IsInf(sums[2], -1))

	b, err := stochastic.Measure(f, semiring.Log)
	require.NoError(t, err)
	assert.True(t, b.IsStochastic(1e-9), "dead states are skipped")
}

func TestCheckNotWorse(t *testing.T) {
	prev := stochastic.Bounds{Min: -0.1, Max: 0.2}
	cases := []struct {
		name string
		next stochastic.Bounds
		ok   bool
	}{
		{"same", prev, true},
		{"tighter", stochastic.Bounds{Min: -0.05, Max: 0.1}, true},
		{"exactly stochastic", stochastic.Bounds{}, true},
		{"within tolerance", stochastic.Bounds{Min: -0.1 - 1e-7, Max: 0.2}, true},
		{"more excess", stochastic.Bounds{Min: -0.1, Max: 0.3}, false},
		{"more deficit", stochastic.Bounds{Min: -0.2, Max: 0.2}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := stochastic.CheckNotWorse(prev, tc.next, 1e-6)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, stochastic.ErrStochasticityRegression)
			}
		})
	}
}

func TestCheckNotWorse_EnvelopeIncludesZero(t *testing.T) {
	// prev only has excess; a stage that reaches exactly 0 somewhere is fine.
	prev := stochastic.Bounds{Min: 0.1, Max: 0.2}
	assert.NoError(t, stochastic.CheckNotWorse(prev, stochastic.Bounds{Min: 0, Max: 0.2}, 0))
	assert.Error(t, stochastic.CheckNotWorse(prev, stochastic.Bounds{Min: -0.01, Max: 0.2}, 0))
}

func TestBounds_Helpers(t *testing.T) {
	a := stochastic.Bounds{Min: -1, Max: 0.5}
	b := stochastic.Bounds{Min: -0.5, Max: 2}
	assert.Equal(t, stochastic.Bounds{Min: -1, Max: 2}, a.Union(b))
	assert.Equal(t, 1.0, a.Distance())
	assert.Equal(t, "[-1, 0.5]", a.String())
	assert.Equal(t, stochastic.Bounds{Min: 0, Max: 2}, stochastic.Bounds{Min: 1, Max: 2}.Envelope())
}
