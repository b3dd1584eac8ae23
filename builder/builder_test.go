// Package builder_test contains functional tests for the L, G and H′
// constructors, the transition model and the symbol table.
package builder_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/hclg/builder"
	"github.com/katalvlaran/hclg/contextfst"
	"github.com/katalvlaran/hclg/disambig"
	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
	"github.com/katalvlaran/hclg/stochastic"
)

// Phones k a t s and words cat, cats.
const (
	phK, phA, phT, phS = 1, 2, 3, 4
	wCat, wCats        = 1, 2
)

var phones = []fst.Label{phK, phA, phT, phS}

func catsLexicon() []builder.Pronunciation {
	return []builder.Pronunciation{
		{Word: wCat, Phones: []fst.Label{phK, phA, phT}},
		{Word: wCats, Phones: []fst.Label{phK, phA, phT, phS}},
	}
}

func TestLexicon_Shape(t *testing.T) {
	t.Parallel()

	m := disambig.NewManager()
	require.NoError(t, m.AllocateWordBackoff(3))
	l, err := builder.BuildFst(nil, builder.Lexicon(phones, catsLexicon(), m))
	require.NoError(t, err)

	// #0 and #1 follow the largest phone; "cat" is a prefix of "cats".
	hash0, ok := m.PhoneSymbol(0)
	require.True(t, ok)
	hash1, ok := m.PhoneSymbol(1)
	require.True(t, ok)
	assert.Equal(t, fst.Label(5), hash0)
	assert.Equal(t, fst.Label(6), hash1)

	assert.Equal(t, 7, l.NumStates())
	assert.Equal(t, 9, l.TotalArcs())
	assert.Equal(t, semiring.One, l.Final(l.Start()))

	// The backoff loop maps phone #0 to word #0.
	loops := l.FindInput(l.Start(), hash0)
	require.Len(t, loops, 1)
	assert.Equal(t, fst.Label(3), loops[0].OLabel)
	assert.Equal(t, l.Start(), loops[0].NextState)

	for _, in := range [][]fst.Label{{phK, phA, phT, hash1}, {phK, phA, phT, phS}} {
		w, err := fst.PathWeight(l, in, semiring.Log)
		require.NoError(t, err)
		assert.InDelta(t, semiring.One, w, 1e-12, "input %v", in)
	}
	w, err := fst.PathWeight(l, []fst.Label{phK, phA, phT}, semiring.Log)
	require.NoError(t, err)
	assert.True(t, semiring.IsZero(w), "cat without #1 must be rejected")
}

func TestLexicon_PronunciationProbabilities(t *testing.T) {
	t.Parallel()

	m := disambig.NewManager()
	require.NoError(t, m.AllocateWordBackoff(3))
	prons := []builder.Pronunciation{
		{Word: wCat, Phones: []fst.Label{phK, phA, phT}, Prob: 0.75},
		{Word: wCat, Phones: []fst.Label{phK, phS, phT}, Prob: 0.25},
	}
	l, err := builder.BuildFst(nil, builder.Lexicon(phones, prons, m))
	require.NoError(t, err)

	w, err := fst.PathWeight(l, []fst.Label{phK, phS, phT}, semiring.Log)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.25), w, 1e-12)
}

func TestLexicon_Errors(t *testing.T) {
	t.Parallel()

	withBackoff := func() *disambig.Manager {
		m := disambig.NewManager()
		require.NoError(t, m.AllocateWordBackoff(3))

		return m
	}
	tests := []struct {
		name  string
		ctor  builder.Constructor
		wantE error
	}{
		{"no pronunciations", builder.Lexicon(phones, nil, withBackoff()), builder.ErrEmptyInventory},
		{"no phones", builder.Lexicon(nil, catsLexicon(), withBackoff()), builder.ErrEmptyInventory},
		{"grammar not built", builder.Lexicon(phones, catsLexicon(), disambig.NewManager()), builder.ErrMissingSymbol},
		{"undeclared phone", builder.Lexicon(phones, []builder.Pronunciation{{Word: 1, Phones: []fst.Label{9}}}, withBackoff()), builder.ErrInvalidLabel},
		{"epsilon word", builder.Lexicon(phones, []builder.Pronunciation{{Word: 0, Phones: []fst.Label{phK}}}, withBackoff()), builder.ErrInvalidLabel},
		{"bad probability", builder.Lexicon(phones, []builder.Pronunciation{{Word: 1, Phones: []fst.Label{phK}, Prob: 1.5}}, withBackoff()), builder.ErrInvalidProbability},
		{"nil constructor", nil, builder.ErrConstructFailed},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := builder.BuildFst(nil, tc.ctor)
			assert.ErrorIs(t, err, tc.wantE)
		})
	}
}

func TestBuildFst_RefusesNonEmptyTarget(t *testing.T) {
	t.Parallel()

	m := disambig.NewManager()
	g := builder.Grammar(builder.BigramModel{
		Words: []fst.Label{1},
		Start: []builder.WordProb{{Word: 1, Prob: 1}},
	}, m)
	_, err := builder.BuildFst(nil, g, g)
	assert.ErrorIs(t, err, builder.ErrConstructFailed)
}

func TestGrammar_BigramWithBackoff(t *testing.T) {
	t.Parallel()

	m := disambig.NewManager()
	model := builder.BigramModel{
		Words:   []fst.Label{wCat, wCats},
		Start:   []builder.WordProb{{Word: wCat, Prob: 0.6}, {Word: wCats, Prob: 0.4}},
		Unigram: []builder.WordProb{{Word: wCat, Prob: 0.5}, {Word: wCats, Prob: 0.3}},
		End:     0.2,
		Histories: []builder.History{
			{Word: wCat, Next: []builder.WordProb{{Word: wCats, Prob: 0.5}}, End: 0.3, Backoff: 0.2},
		},
	}
	g, err := builder.BuildFst(nil, builder.Grammar(model, m))
	require.NoError(t, err)

	backoff, ok := m.WordBackoff()
	require.True(t, ok)
	assert.Equal(t, fst.Label(3), backoff)

	assert.Equal(t, 3, g.NumStates())
	assert.True(t, semiring.IsZero(g.Final(g.Start())), "the empty sentence is not accepted")

	// The history state of "cat" backs off on #0 with an epsilon output.
	backs := g.FindInput(2, backoff)
	require.Len(t, backs, 1)
	assert.Equal(t, fst.Epsilon, backs[0].OLabel)
	assert.Equal(t, fst.StateID(1), backs[0].NextState)

	b, err := stochastic.Measure(g, semiring.Log)
	require.NoError(t, err)
	assert.True(t, b.IsStochastic(1e-9), "bounds %v", b)

	// cat cats </s> = 0.6 · 0.5 · 0.2
	w, err := fst.PathWeight(g, []fst.Label{wCat, wCats}, semiring.Log)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.6*0.5*0.2), w, 1e-9)
}

func TestGrammar_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		model builder.BigramModel
		wantE error
	}{
		{"no words", builder.BigramModel{}, builder.ErrEmptyInventory},
		{"no start", builder.BigramModel{Words: []fst.Label{1}}, builder.ErrEmptyInventory},
		{"unknown word", builder.BigramModel{
			Words: []fst.Label{1},
			Start: []builder.WordProb{{Word: 2, Prob: 1}},
		}, builder.ErrInvalidLabel},
		{"zero probability", builder.BigramModel{
			Words: []fst.Label{1},
			Start: []builder.WordProb{{Word: 1, Prob: 0}},
		}, builder.ErrInvalidProbability},
		{"duplicate history", builder.BigramModel{
			Words:     []fst.Label{1},
			Start:     []builder.WordProb{{Word: 1, Prob: 1}},
			Histories: []builder.History{{Word: 1}, {Word: 1}},
		}, builder.ErrInvalidLabel},
		{"bad backoff", builder.BigramModel{
			Words:     []fst.Label{1},
			Start:     []builder.WordProb{{Word: 1, Prob: 1}},
			Histories: []builder.History{{Word: 1, Backoff: 2}},
		}, builder.ErrInvalidProbability},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := builder.BuildFst(nil, builder.Grammar(tc.model, disambig.NewManager()))
			assert.ErrorIs(t, err, tc.wantE)
		})
	}
}

// arena registers two phones in context and one disambiguation symbol.
func arena() *contextfst.ILabelInfo {
	info := contextfst.NewILabelInfo(1)
	info.LookupOrInsert(contextfst.Window{0, phK, phA}) // 2
	info.LookupOrInsert(contextfst.Window{phK, phA, 0}) // 3
	info.LookupOrInsert(contextfst.Window{-5})          // 4

	return info
}

func TestHMMTransitions_Layout(t *testing.T) {
	t.Parallel()

	tm, err := builder.NewHMMTransitions(arena(), builder.WithStatesPerPhone(2), builder.WithSelfLoopProb(0.25))
	require.NoError(t, err)
	assert.Equal(t, []fst.Label{2, 3}, tm.Windows())
	assert.Equal(t, 8, tm.NumTransitionIDs())
	assert.Equal(t, 2, tm.StatesPerPhone())
	assert.Equal(t, 0.25, tm.SelfLoopProb())

	entry, ok := tm.EntryID(3, 1)
	require.True(t, ok)
	assert.Equal(t, fst.Label(7), entry)
	assert.Equal(t, 3, tm.Class(7))
	assert.Equal(t, 3, tm.Class(8))
	assert.Equal(t, builder.NoClass, tm.Class(9))
	assert.Equal(t, builder.NoClass, tm.Class(fst.Epsilon))

	loop, p, ok := tm.SelfLoop(3)
	require.True(t, ok)
	assert.Equal(t, fst.Label(8), loop)
	assert.Equal(t, 0.25, p)
	_, _, ok = tm.SelfLoop(4)
	assert.False(t, ok)

	w, state, isLoop, ok := tm.Describe(8)
	require.True(t, ok)
	assert.Equal(t, fst.Label(3), w)
	assert.Equal(t, 1, state)
	assert.True(t, isLoop)

	_, ok = tm.EntryID(4, 0)
	assert.False(t, ok, "disambiguation labels have no HMM")

	_, err = builder.NewHMMTransitions(contextfst.NewILabelInfo(1))
	assert.ErrorIs(t, err, builder.ErrEmptyInventory)
}

func TestHMM_Shape(t *testing.T) {
	t.Parallel()

	info := arena()
	m := disambig.NewManager()
	tm, err := builder.NewHMMTransitions(info, builder.WithStatesPerPhone(2))
	require.NoError(t, err)
	h, err := builder.BuildFst(nil, builder.HMM(tm, info, m))
	require.NoError(t, err)

	assert.Equal(t, 3, h.NumStates())
	assert.Equal(t, 6, h.TotalArcs())

	// Non-epsilon outputs leaving the start state are all distinct.
	seen := make(map[fst.Label]bool)
	for _, a := range h.Arcs(h.Start()) {
		require.NotEqual(t, fst.Epsilon, a.OLabel)
		assert.False(t, seen[a.OLabel], "output %d repeated", a.OLabel)
		seen[a.OLabel] = true
	}
	assert.True(t, seen[contextfst.PseudoEpsilon])
	assert.True(t, seen[4])

	tids := m.Set(disambig.LevelTransition)
	require.NotNil(t, tids)
	assert.Equal(t, []fst.Label{9, 10}, tids.Labels())

	// Window 2 expands to entry(0,0) entry(0,1).
	w, err := fst.PathWeight(h, []fst.Label{1, 3}, semiring.Log)
	require.NoError(t, err)
	assert.InDelta(t, semiring.One, w, 1e-12)
}

func TestOptions_Panic(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { builder.WithStatesPerPhone(0) })
	assert.Panics(t, func() { builder.WithSelfLoopProb(0) })
	assert.Panics(t, func() { builder.WithSelfLoopProb(1) })
	assert.NotPanics(t, func() { builder.WithSelfLoopProb(0.9) })
}

func TestSymbolTable(t *testing.T) {
	t.Parallel()

	st := builder.NewSymbolTable()
	assert.Equal(t, fst.Label(1), st.Add("k"))
	assert.Equal(t, fst.Label(2), st.Add("a"))
	assert.Equal(t, fst.Label(1), st.Add("k"), "Add is idempotent")

	l, ok := st.Find("a")
	require.True(t, ok)
	assert.Equal(t, fst.Label(2), l)
	_, ok = st.Find("z")
	assert.False(t, ok)

	assert.Equal(t, builder.EpsilonSymbol, st.Name(fst.Epsilon))
	assert.Equal(t, "a", st.Name(2))
	assert.Equal(t, "42", st.Name(42))
	assert.Equal(t, 3, st.Len())
	assert.Equal(t, []fst.Label{1, 2}, st.Labels())
}
