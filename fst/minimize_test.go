package fst_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
)

// diamond: 0 -1/w01-> 1 -2/w13-> 3, 0 -3/w02-> 2 -2/w23-> 3, 3 final.
func diamond(t *testing.T, w01, w13, w02, w23 float64) *fst.VectorFst {
	f := fst.NewVectorFst()
	f.AddStates(4)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, w01, 1)
	addArc(t, f, 0, 3, 3, w02, 2)
	addArc(t, f, 1, 2, 2, w13, 3)
	addArc(t, f, 2, 2, 2, w23, 3)
	require.NoError(t, f.SetFinal(3, 0))

	return f
}

func TestMinimize_MergesEquivalentStates(t *testing.T) {
	f := diamond(t, 0, 1, 0, 1)
	m, err := fst.Minimize(f, fst.WithoutPushing())
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumStates())
	assert.Equal(t, 3, m.TotalArcs())
	assert.Equal(t, 4, f.NumStates(), "input is not modified")

	for _, in := range [][]fst.Label{{1, 2}, {3, 2}} {
		w, err := fst.PathWeight(m, in, semiring.Log)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, w, 1e-12)
	}
}

func TestMinimize_PushingExposesMoreMerges(t *testing.T) {
	// 1 and 2 only become equivalent once their weights are pushed.
	f := diamond(t, 0, 1, 1, 0)

	plain, err := fst.Minimize(f, fst.WithoutPushing())
	require.NoError(t, err)
	assert.Equal(t, 4, plain.NumStates())

	pushed, err := fst.Minimize(f)
	require.NoError(t, err)
	assert.Equal(t, 3, pushed.NumStates())

	for _, in := range [][]fst.Label{{1, 2}, {3, 2}} {
		w, err := fst.PathWeight(pushed, in, semiring.Log)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, w, 1e-9)
	}
}

func TestMinimize_WithoutPushingKeepsWeights(t *testing.T) {
	f := chain(t, 0, 1, 2)
	f.Arcs(1)[0].Weight = 1

	plain, err := fst.Minimize(f, fst.WithoutPushing())
	require.NoError(t, err)
	assert.Equal(t, 0.0, plain.Arcs(plain.Start())[0].Weight)

	pushed, err := fst.Minimize(f)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pushed.Arcs(pushed.Start())[0].Weight, 1e-12, "weight moved to the start")
}

func TestMinimize_KeepsDuplicateArcs(t *testing.T) {
	// Two parallel arcs must not collapse into one: that would halve the
	// probability mass of state 0 in the log semiring.
	f := fst.NewVectorFst()
	f.AddStates(2)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, half, 1)
	addArc(t, f, 0, 1, 1, half, 1)
	require.NoError(t, f.SetFinal(1, 0))

	m, err := fst.Minimize(f, fst.WithoutPushing())
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalArcs())
}

func TestMinimize_DistinguishesFinalWeights(t *testing.T) {
	f := fst.NewVectorFst()
	f.AddStates(3)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, 0, 1)
	addArc(t, f, 0, 2, 2, 0, 2)
	require.NoError(t, f.SetFinal(1, 0))
	require.NoError(t, f.SetFinal(2, 1))

	m, err := fst.Minimize(f, fst.WithoutPushing())
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumStates())
}

func TestEncodeTable(t *testing.T) {
	tab := fst.NewEncodeTable(semiring.DefaultDelta)
	a := tab.Encode(fst.Arc{ILabel: 1, OLabel: 2, Weight: 0.5})
	b := tab.Encode(fst.Arc{ILabel: 1, OLabel: 2, Weight: 0.5 + semiring.DefaultDelta/8})
	c := tab.Encode(fst.Arc{ILabel: 2, OLabel: 1, Weight: 0.5})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, tab.Len())

	il, ol, w, ok := tab.Decode(c)
	require.True(t, ok)
	assert.Equal(t, fst.Label(2), il)
	assert.Equal(t, fst.Label(1), ol)
	assert.Equal(t, 0.5, w)
	_, _, _, ok = tab.Decode(0)
	assert.False(t, ok)
}
