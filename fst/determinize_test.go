package fst_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
)

// forkedAcceptor: two label-1 arcs of probability 1/2 that then diverge.
func forkedAcceptor(t *testing.T) *fst.VectorFst {
	f := fst.NewVectorFst()
	f.AddStates(4)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, half, 1)
	addArc(t, f, 0, 1, 1, half, 2)
	addArc(t, f, 1, 2, 2, 0, 3)
	addArc(t, f, 2, 3, 3, 0, 3)
	require.NoError(t, f.SetFinal(3, 0))

	return f
}

func TestDeterminize_LogMergesWeights(t *testing.T) {
	f := forkedAcceptor(t)
	d, err := fst.Determinize(f, semiring.Log)
	require.NoError(t, err)
	assert.True(t, fst.IsInputDeterministic(d))
	assert.Equal(t, 3, d.NumStates())

	start := d.Arcs(d.Start())
	require.Len(t, start, 1)
	assert.InDelta(t, 0.0, start[0].Weight, 1e-12, "1/2 ⊕ 1/2 = 1")

	for _, in := range [][]fst.Label{{1, 2}, {1, 3}} {
		want, err := fst.PathWeight(f, in, semiring.Log)
		require.NoError(t, err)
		got, err := fst.PathWeight(d, in, semiring.Log)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestDeterminize_TropicalKeepsBest(t *testing.T) {
	f := fst.NewVectorFst()
	f.AddStates(2)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, 2, 1)
	addArc(t, f, 0, 1, 1, 3, 1)
	require.NoError(t, f.SetFinal(1, 0))

	d, err := fst.Determinize(f, semiring.Tropical)
	require.NoError(t, err)
	require.Equal(t, 1, d.TotalArcs())
	assert.Equal(t, 2.0, d.Arcs(d.Start())[0].Weight)
}

func TestDeterminize_DelaysAndEmitsCommonOutput(t *testing.T) {
	f := fst.NewVectorFst()
	f.AddStates(4)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 7, half, 1)
	addArc(t, f, 0, 1, 7, half, 2)
	addArc(t, f, 1, 2, fst.Epsilon, 0, 3)
	addArc(t, f, 2, 3, fst.Epsilon, 0, 3)
	require.NoError(t, f.SetFinal(3, 0))

	d, err := fst.Determinize(f, semiring.Log)
	require.NoError(t, err)
	start := d.Arcs(d.Start())
	require.Len(t, start, 1)
	assert.Equal(t, fst.Label(7), start[0].OLabel)
}

func TestDeterminize_FlushesFinalString(t *testing.T) {
	// Output 9 is not common to both branches, so it is emitted at the end.
	f := fst.NewVectorFst()
	f.AddStates(3)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 9, 0, 1)
	addArc(t, f, 0, 1, fst.Epsilon, 0, 2)
	addArc(t, f, 2, 4, 4, 0, 2)
	require.NoError(t, f.SetFinal(1, 0))

	d, err := fst.Determinize(f, semiring.Tropical)
	require.NoError(t, err)
	w, err := fst.PathWeight(d, []fst.Label{1}, semiring.Tropical)
	require.NoError(t, err)
	assert.Equal(t, 0.0, w)

	var outputs []fst.Label
	for s := 0; s < d.NumStates(); s++ {
		for _, a := range d.Arcs(fst.StateID(s)) {
			if a.OLabel != fst.Epsilon {
				outputs = append(outputs, a.OLabel)
			}
		}
	}
	assert.Contains(t, outputs, fst.Label(9))
}

func TestDeterminize_RemovesInputEpsilons(t *testing.T) {
	f := fst.NewVectorFst()
	f.AddStates(3)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, fst.Epsilon, fst.Epsilon, 0.5, 1)
	addArc(t, f, 1, 4, 4, 0.25, 2)
	require.NoError(t, f.SetFinal(2, 0))

	d, err := fst.Determinize(f, semiring.Log)
	require.NoError(t, err)
	assert.True(t, fst.IsInputDeterministic(d))
	w, err := fst.PathWeight(d, []fst.Label{4}, semiring.Log)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, w, 1e-12)
}

func TestDeterminize_NonFunctional(t *testing.T) {
	// Input 1 maps to both 5 and 6: no deterministic equivalent exists.
	f := fst.NewVectorFst()
	f.AddStates(3)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 5, half, 1)
	addArc(t, f, 0, 1, 6, half, 2)
	require.NoError(t, f.SetFinal(1, 0))
	require.NoError(t, f.SetFinal(2, 0))

	_, err := fst.Determinize(f, semiring.Log)
	assert.ErrorIs(t, err, fst.ErrNonDeterminizable)
}

func TestDeterminize_StateLimit(t *testing.T) {
	f := chain(t, 0, 1, 2, 3, 4)
	_, err := fst.Determinize(f, semiring.Log, fst.WithMaxDeterminizeStates(2))
	assert.ErrorIs(t, err, fst.ErrNonDeterminizable)

	assert.Panics(t, func() { fst.WithMaxDeterminizeStates(0) })
	assert.Panics(t, func() { fst.WithDeterminizeDelta(-1) })
}

func TestDeterminize_KeepsStochasticity(t *testing.T) {
	f := forkedAcceptor(t)
	d, err := fst.Determinize(f, semiring.Log)
	require.NoError(t, err)
	for s := 0; s < d.NumStates(); s++ {
		sum := d.Final(fst.StateID(s))
		for _, a := range d.Arcs(fst.StateID(s)) {
			sum = semiring.Log.Plus(sum, a.Weight)
		}
		assert.InDelta(t, 0.0, sum, 1e-9, "state %d", s)
	}
	assert.False(t, math.IsNaN(d.Final(0)))
}
