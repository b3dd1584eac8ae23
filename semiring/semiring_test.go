package semiring_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/hclg/semiring"
)

func TestPlus_Tropical(t *testing.T) {
	assert.Equal(t, 1.0, semiring.Tropical.Plus(1, 2))
	assert.Equal(t, 1.0, semiring.Tropical.Plus(semiring.Zero, 1))
	assert.True(t, semiring.IsZero(semiring.Tropical.Plus(semiring.Zero, semiring.Zero)))
}

func TestPlus_LogMatchesLinearSum(t *testing.T) {
	a := -math.Log(0.2)
	b := -math.Log(0.3)
	got := semiring.Log.Plus(a, b)
	assert.InDelta(t, -math.Log(0.5), got, 1e-12)

	// Order must not matter.
	assert.InDelta(t, got, semiring.Log.Plus(b, a), 1e-15)
}

func TestPlus_LogIdentity(t *testing.T) {
	w := -math.Log(0.7)
	assert.Equal(t, w, semiring.Log.Plus(semiring.Zero, w))
	assert.Equal(t, w, semiring.Log.Plus(w, semiring.Zero))
}

func TestPlus_LogFarApart(t *testing.T) {
	// The second term is below float64 resolution.
	assert.Equal(t, 1.0, semiring.Log.Plus(1, 100))
}

func TestSum(t *testing.T) {
	probs := []float64{0.1, 0.2, 0.3, 0.4}
	costs := make([]float64, len(probs))
	for i, p := range probs {
		costs[i] = -math.Log(p)
	}
	assert.InDelta(t, 0.0, semiring.Log.Sum(costs...), 1e-12)
	assert.InDelta(t, -math.Log(0.4), semiring.Tropical.Sum(costs...), 1e-12)
	assert.True(t, semiring.IsZero(semiring.Log.Sum()))
}

func TestTimesAndDivide(t *testing.T) {
	assert.Equal(t, 3.0, semiring.Times(1, 2))
	assert.True(t, semiring.IsZero(semiring.Times(semiring.Zero, 2)))
	assert.Equal(t, 1.0, semiring.Divide(3, 2))
	assert.True(t, semiring.IsZero(semiring.Divide(semiring.Zero, 2)))
	assert.True(t, math.IsNaN(semiring.Divide(1, semiring.Zero)))
}

func TestApproxEqualAndQuantize(t *testing.T) {
	assert.True(t, semiring.ApproxEqual(1.0, 1.0+semiring.DefaultDelta/2, semiring.DefaultDelta))
	assert.False(t, semiring.ApproxEqual(1.0, 1.1, semiring.DefaultDelta))
	assert.True(t, semiring.ApproxEqual(semiring.Zero, semiring.Zero, 0))
	assert.False(t, semiring.ApproxEqual(semiring.Zero, 1, 1e9))

	q1 := semiring.Quantize(0.50001, 0.25)
	q2 := semiring.Quantize(0.49999, 0.25)
	assert.Equal(t, q1, q2)
	assert.True(t, semiring.IsZero(semiring.Quantize(semiring.Zero, 0.25)))
}

func TestParseKind(t *testing.T) {
	k, err := semiring.ParseKind("LOG")
	require.NoError(t, err)
	assert.Equal(t, semiring.Log, k)

	k, err = semiring.ParseKind(" tropical ")
	require.NoError(t, err)
	assert.Equal(t, semiring.Tropical, k)

	_, err = semiring.ParseKind("real")
	assert.ErrorIs(t, err, semiring.ErrUnknownKind)
}

func TestKind_TextRoundTrip(t *testing.T) {
	var k semiring.Kind
	require.NoError(t, k.UnmarshalText([]byte("log")))
	b, err := k.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "log", string(b))
	assert.Error(t, k.UnmarshalText([]byte("boolean")))
}
