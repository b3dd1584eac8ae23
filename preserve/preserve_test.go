package preserve_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/preserve"
	"github.com/katalvlaran/hclg/semiring"
	"github.com/katalvlaran/hclg/stochastic"
)

var half = -math.Log(0.5)

func addArc(t *testing.T, f *fst.VectorFst, src fst.StateID, il, ol fst.Label, w float64, dst fst.StateID) {
	t.Helper()
	require.NoError(t, f.AddArc(src, fst.Arc{ILabel: il, OLabel: ol, Weight: w, NextState: dst}))
}

// ambiguous accepts label 1 along two paths of probability 1/2 each.
func ambiguous(t *testing.T) *fst.VectorFst {
	t.Helper()
	f := fst.NewVectorFst()
	f.AddStates(3)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, half, 1)
	addArc(t, f, 0, 1, 1, half, 2)
	require.NoError(t, f.SetFinal(1, semiring.One))
	require.NoError(t, f.SetFinal(2, semiring.One))

	return f
}

func TestDeterminize_RefusesTropical(t *testing.T) {
	_, err := preserve.Determinize(ambiguous(t), semiring.Tropical)
	require.ErrorIs(t, err, preserve.ErrSemiringMismatch)
}

func TestDeterminize_LogStaysStochastic(t *testing.T) {
	det, err := preserve.Determinize(ambiguous(t), semiring.Log)
	require.NoError(t, err)
	assert.True(t, fst.IsInputDeterministic(det))

	b, err := stochastic.Measure(det, semiring.Log)
	require.NoError(t, err)
	assert.True(t, b.IsStochastic(1e-9), "bounds %v", b)
}

func TestMinimize_DoesNotPush(t *testing.T) {
	// State 0 carries excess mass 1.2; pushing would move it.
	f := fst.NewVectorFst()
	f.AddStates(2)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, -math.Log(0.6), 1)
	addArc(t, f, 0, 2, 2, -math.Log(0.6), 1)
	require.NoError(t, f.SetFinal(1, semiring.One))

	before, err := stochastic.Measure(f, semiring.Log)
	require.NoError(t, err)
	m, err := preserve.Minimize(f, fst.WithPushSemiring(semiring.Log))
	require.NoError(t, err)
	after, err := stochastic.Measure(m, semiring.Log)
	require.NoError(t, err)
	assert.InDelta(t, before.Max, after.Max, 1e-9)
	assert.InDelta(t, math.Log(1.2), after.Max, 1e-9)
}

func TestLeftCompose_Verified(t *testing.T) {
	// a maps 5 → 1 deterministically: it meets the left conditions.
	a := fst.NewVectorFst()
	a.AddStates(1)
	require.NoError(t, a.SetStart(0))
	require.NoError(t, a.SetFinal(0, semiring.One))
	addArc(t, a, 0, 5, 1, semiring.One, 0)

	out, err := preserve.LeftCompose(a, ambiguous(t), preserve.WithVerification(1e-6))
	require.NoError(t, err)
	w, err := fst.PathWeight(out, []fst.Label{5}, semiring.Log)
	require.NoError(t, err)
	assert.InDelta(t, semiring.One, w, 1e-9)

	require.NoError(t, preserve.CheckLeftConditions(a, [][]fst.Label{{1}, {1, 1}}, 1e-9))
}

func TestLeftCompose_RegressionDetected(t *testing.T) {
	// a doubles the mass of every 1 it produces.
	a := fst.NewVectorFst()
	a.AddStates(1)
	require.NoError(t, a.SetStart(0))
	require.NoError(t, a.SetFinal(0, semiring.One))
	addArc(t, a, 0, 5, 1, semiring.One, 0)
	addArc(t, a, 0, 6, 1, semiring.One, 0)

	_, err := preserve.LeftCompose(a, ambiguous(t), preserve.WithVerification(1e-6))
	require.ErrorIs(t, err, stochastic.ErrStochasticityRegression)

	err = preserve.CheckLeftConditions(a, [][]fst.Label{{1}}, 1e-9)
	require.ErrorIs(t, err, preserve.ErrLeftCondition)
	err = preserve.CheckLeftConditions(a, [][]fst.Label{{7}}, 1e-9)
	require.ErrorIs(t, err, preserve.ErrLeftCondition)
}

func TestLeftCompose_Options(t *testing.T) {
	assert.Panics(t, func() { preserve.WithVerification(-1) })
	assert.Panics(t, func() { preserve.WithMaxStates(-1) })

	a := ambiguous(t)
	_, err := preserve.LeftCompose(a, ambiguous(t), preserve.WithMaxStates(1))
	require.ErrorIs(t, err, fst.ErrComposeTooLarge)

	out, err := preserve.LeftCompose(a, ambiguous(t), preserve.WithMatcher(a))
	require.NoError(t, err)
	assert.Positive(t, out.NumStates())
}

func TestLocalEpsilonRemoval_ForwardMerge(t *testing.T) {
	// 0 -1/½-> 1 -ε-> 2 -3-> 3, plus 0 -2/½-> 3.
	f := fst.NewVectorFst()
	f.AddStates(4)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, half, 1)
	addArc(t, f, 0, 2, 2, half, 3)
	addArc(t, f, 1, 0, 0, semiring.One, 2)
	addArc(t, f, 2, 3, 3, semiring.One, 3)
	require.NoError(t, f.SetFinal(3, semiring.One))

	out, rep, err := preserve.LocalEpsilonRemoval(f)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Merged)
	assert.Equal(t, 1, rep.EpsilonsBefore)
	assert.Equal(t, 0, rep.EpsilonsAfter)
	assert.Equal(t, 3, rep.StatesAfter)
	assert.Equal(t, 3, rep.ArcsAfter)

	for _, k := range []semiring.Kind{semiring.Tropical, semiring.Log} {
		before, err := fst.PathWeight(f, []fst.Label{1, 3}, k)
		require.NoError(t, err)
		after, err := fst.PathWeight(out, []fst.Label{1, 3}, k)
		require.NoError(t, err)
		assert.InDelta(t, before, after, 1e-9, "semiring %v", k)
	}
	b, err := stochastic.Measure(out, semiring.Log)
	require.NoError(t, err)
	assert.True(t, b.IsStochastic(1e-9))
}

func TestLocalEpsilonRemoval_BackwardMerge(t *testing.T) {
	// 0 -1:ε/½-> 1, 0 -2:ε/½-> 1, 1 -ε:9-> 2 (final).
	f := fst.NewVectorFst()
	f.AddStates(3)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 0, half, 1)
	addArc(t, f, 0, 2, 0, half, 1)
	addArc(t, f, 1, 0, 9, semiring.One, 2)
	require.NoError(t, f.SetFinal(2, semiring.One))

	out, rep, err := preserve.LocalEpsilonRemoval(f)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Merged)
	assert.Equal(t, 2, out.NumStates())
	for _, a := range out.Arcs(out.Start()) {
		assert.Equal(t, fst.Label(9), a.OLabel)
	}
	assert.Equal(t, 0, rep.EpsilonsAfter)
}

func TestLocalEpsilonRemoval_TropicalRejectsFinalMerge(t *testing.T) {
	// Merging 2 into 1 would need 1's final ⊕ the final reached through ε.
	f := fst.NewVectorFst()
	f.AddStates(3)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, semiring.One, 1)
	addArc(t, f, 1, 0, 0, half, 2)
	require.NoError(t, f.SetFinal(1, half))
	require.NoError(t, f.SetFinal(2, semiring.One))

	out, rep, err := preserve.LocalEpsilonRemoval(f)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Merged)
	assert.Equal(t, 1, rep.RejectedTropical)
	assert.Equal(t, f.String(), out.String())
}

func TestLocalEpsilonRemoval_SingleFinalMergeAccepted(t *testing.T) {
	// 0 -1:1-> 1 -ε/½-> 2 (final): only 2 is final, so ⊕ has one term.
	f := fst.NewVectorFst()
	f.AddStates(3)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, semiring.One, 1)
	addArc(t, f, 1, 0, 0, half, 2)
	require.NoError(t, f.SetFinal(2, semiring.One))

	out, rep, err := preserve.LocalEpsilonRemoval(f)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Merged)
	assert.Equal(t, 0, rep.RejectedTropical)
	assert.Equal(t, 2, out.NumStates())

	w, err := fst.PathWeight(out, []fst.Label{1}, semiring.Tropical)
	require.NoError(t, err)
	assert.InDelta(t, half, w, 1e-9)
}

func TestLocalEpsilonRemoval_LogRejectsLeavingEnvelope(t *testing.T) {
	// 0 and 1 both sum to 2; folding 1 into 0 would give 3.
	f := fst.NewVectorFst()
	f.AddStates(3)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 1, semiring.One, 2)
	addArc(t, f, 0, 0, 0, semiring.One, 1)
	addArc(t, f, 1, 2, 2, semiring.One, 2)
	addArc(t, f, 1, 3, 3, semiring.One, 2)
	require.NoError(t, f.SetFinal(2, semiring.One))

	out, rep, err := preserve.LocalEpsilonRemoval(f)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Merged)
	assert.Equal(t, 1, rep.RejectedLog)
	assert.Equal(t, 0, rep.RejectedTropical)
	assert.Equal(t, 1, rep.EpsilonsAfter)
	assert.Equal(t, 3, out.NumStates())
}

func TestLocalEpsilonRemoval_NeverGrows(t *testing.T) {
	// A chain of ε arcs collapses one state per merge.
	f := fst.NewVectorFst()
	f.AddStates(5)
	require.NoError(t, f.SetStart(0))
	addArc(t, f, 0, 1, 0, semiring.One, 1)
	addArc(t, f, 1, 0, 0, semiring.One, 2)
	addArc(t, f, 2, 0, 0, semiring.One, 3)
	addArc(t, f, 3, 0, 4, semiring.One, 4)
	require.NoError(t, f.SetFinal(4, semiring.One))

	out, rep, err := preserve.LocalEpsilonRemoval(f)
	require.NoError(t, err)
	assert.LessOrEqual(t, rep.StatesAfter, rep.StatesBefore)
	assert.LessOrEqual(t, rep.ArcsAfter, rep.ArcsBefore)
	assert.Equal(t, 0, rep.EpsilonsAfter)
	assert.Equal(t, 2, out.NumStates())
	assert.Equal(t, 3, rep.Merged)

	w, err := fst.PathWeight(out, []fst.Label{1}, semiring.Log)
	require.NoError(t, err)
	assert.InDelta(t, semiring.One, w, 1e-9)
}

func TestLocalEpsilonRemoval_EmptyAndNil(t *testing.T) {
	_, _, err := preserve.LocalEpsilonRemoval(nil)
	require.ErrorIs(t, err, fst.ErrNilFst)

	out, rep, err := preserve.LocalEpsilonRemoval(fst.NewVectorFst())
	require.NoError(t, err)
	assert.Equal(t, fst.NoState, out.Start())
	assert.Equal(t, 0, rep.Merged)

	assert.Panics(t, func() { preserve.WithMaxRounds(0) })
	assert.Panics(t, func() { preserve.WithEpsLogger(nil) })
	assert.Panics(t, func() { preserve.WithEpsTolerance(-1) })
}
