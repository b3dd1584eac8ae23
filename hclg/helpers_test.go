package hclg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/hclg/builder"
	"github.com/katalvlaran/hclg/contextfst"
	"github.com/katalvlaran/hclg/disambig"
	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/hclg"
)

// Phones and words of the cat/cats recipe.
const (
	phK fst.Label = 1
	phA fst.Label = 2
	phT fst.Label = 3
	phS fst.Label = 4

	wCat  fst.Label = 1
	wCats fst.Label = 2
)

// catsModel is stochastic at every state unless startMass moves the start
// state's sum away from one.
func catsModel(startMass float64) builder.BigramModel {
	return builder.BigramModel{
		Words: []fst.Label{wCat, wCats},
		Start: []builder.WordProb{
			{Word: wCat, Prob: startMass / 2},
			{Word: wCats, Prob: startMass / 2},
		},
		Unigram: []builder.WordProb{
			{Word: wCat, Prob: 0.4},
			{Word: wCats, Prob: 0.4},
		},
		End: 0.2,
		Histories: []builder.History{
			{Word: wCat, Next: []builder.WordProb{{Word: wCats, Prob: 0.5}}, End: 0.3, Backoff: 0.2},
		},
	}
}

// catsInputs builds G and L for the recipe; "cat" is a prefix of "cats".
func catsInputs(t *testing.T, startMass float64) hclg.Inputs {
	t.Helper()
	m := disambig.NewManager()
	g, err := builder.BuildFst(nil, builder.Grammar(catsModel(startMass), m))
	require.NoError(t, err)
	prons := []builder.Pronunciation{
		{Word: wCat, Phones: []fst.Label{phK, phA, phT}},
		{Word: wCats, Phones: []fst.Label{phK, phA, phT, phS}},
	}
	l, err := builder.BuildFst(nil, builder.Lexicon([]fst.Label{phK, phA, phT, phS}, prons, m))
	require.NoError(t, err)

	return hclg.Inputs{
		G:       g,
		L:       l,
		Context: hclg.ContextParams{N: 3, P: 1, Phones: []fst.Label{phK, phA, phT, phS}},
		H:       toyH(),
		Symbols: m,
	}
}

// toyH builds H′ with the builder's left-to-right HMMs.
func toyH(opts ...builder.BuilderOption) hclg.HSource {
	return hclg.HSourceFunc(func(info *contextfst.ILabelInfo, m *disambig.Manager) (*fst.VectorFst, hclg.TransitionModel, error) {
		h, tm, err := builder.BuildH(info, m, opts...)
		if err != nil {
			return nil, nil, err
		}

		return h, tm, nil
	})
}

// reweighH wraps src and adds w to every arc of H′.
func reweighH(src hclg.HSource, w float64) hclg.HSource {
	return hclg.HSourceFunc(func(info *contextfst.ILabelInfo, m *disambig.Manager) (*fst.VectorFst, hclg.TransitionModel, error) {
		h, tm, err := src.BuildH(info, m)
		if err != nil {
			return nil, nil, err
		}
		for s := 0; s < h.NumStates(); s++ {
			arcs := h.Arcs(fst.StateID(s))
			for i := range arcs {
				arcs[i].Weight += w
			}
		}

		return h, tm, nil
	})
}

func newPipeline(t *testing.T, opts ...hclg.Option) *hclg.Pipeline {
	t.Helper()
	p, err := hclg.New(opts...)
	require.NoError(t, err)

	return p
}
