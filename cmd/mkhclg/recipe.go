package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/hclg/builder"
	"github.com/katalvlaran/hclg/contextfst"
	"github.com/katalvlaran/hclg/disambig"
	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/hclg"
)

// ErrInvalidRecipe wraps every recipe problem.
var ErrInvalidRecipe = errors.New("mkhclg: invalid recipe")

// Recipe is a toy acoustic/language model written with symbol names.
type Recipe struct {
	Phones  []string      `yaml:"phones"`
	HMM     HMMRecipe     `yaml:"hmm"`
	Context ContextRecipe `yaml:"context,omitempty"`
	Lexicon []PronRecipe  `yaml:"lexicon"`
	Grammar GrammarRecipe `yaml:"grammar"`
}

// HMMRecipe sets the shape of every phone's HMM.
type HMMRecipe struct {
	States       int     `yaml:"states"`
	SelfLoopProb float64 `yaml:"self_loop_prob"`
}

// ContextRecipe overrides the configured context geometry when N > 0.
type ContextRecipe struct {
	N int `yaml:"n"`
	P int `yaml:"p"`
}

// PronRecipe is one lexicon entry.
type PronRecipe struct {
	Word   string   `yaml:"word"`
	Phones []string `yaml:"phones"`
	Prob   float64  `yaml:"prob,omitempty"`
}

// WordProbRecipe is one weighted successor.
type WordProbRecipe struct {
	Word string  `yaml:"word"`
	Prob float64 `yaml:"prob"`
}

// HistoryRecipe is the bigram state after Word.
type HistoryRecipe struct {
	Word    string           `yaml:"word"`
	Next    []WordProbRecipe `yaml:"next"`
	End     float64          `yaml:"end,omitempty"`
	Backoff float64          `yaml:"backoff,omitempty"`
}

// GrammarRecipe is a bigram with backoff.
type GrammarRecipe struct {
	Start     []WordProbRecipe `yaml:"start"`
	Unigram   []WordProbRecipe `yaml:"unigram"`
	End       float64          `yaml:"end"`
	Histories []HistoryRecipe  `yaml:"histories,omitempty"`
}

// LoadRecipe decodes a recipe, rejecting unknown keys.
func LoadRecipe(r io.Reader) (*Recipe, error) {
	var rec Recipe
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}

	return &rec, nil
}

// LoadRecipeFile is LoadRecipe on the file at path.
func LoadRecipeFile(path string) (*Recipe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mkhclg: open recipe: %w", err)
	}
	defer f.Close()

	return LoadRecipe(f)
}

// compiled is a recipe turned into automata.
type compiled struct {
	inputs hclg.Inputs
	phones *builder.SymbolTable
	words  *builder.SymbolTable
}

// compile builds G, then L, and wires the HMM source. G comes first because
// L needs the grammar's #0.
func (rec *Recipe) compile() (*compiled, error) {
	if len(rec.Phones) == 0 {
		return nil, fmt.Errorf("%w: no phones", ErrInvalidRecipe)
	}
	out := &compiled{phones: builder.NewSymbolTable(), words: builder.NewSymbolTable()}
	phones := make([]fst.Label, 0, len(rec.Phones))
	for _, name := range rec.Phones {
		if _, dup := out.phones.Find(name); dup {
			return nil, fmt.Errorf("%w: phone %q declared twice", ErrInvalidRecipe, name)
		}
		phones = append(phones, out.phones.Add(name))
	}

	// 1. Words in order of first appearance, lexicon first.
	for _, p := range rec.Lexicon {
		out.words.Add(p.Word)
	}
	wordOf := func(name string) (fst.Label, error) {
		l, ok := out.words.Find(name)
		if !ok {
			return fst.NoLabel, fmt.Errorf("%w: word %q has no pronunciation", ErrInvalidRecipe, name)
		}

		return l, nil
	}
	succ := func(in []WordProbRecipe) ([]builder.WordProb, error) {
		res := make([]builder.WordProb, 0, len(in))
		for _, wp := range in {
			w, err := wordOf(wp.Word)
			if err != nil {
				return nil, err
			}
			res = append(res, builder.WordProb{Word: w, Prob: wp.Prob})
		}

		return res, nil
	}

	// 2. G.
	model := builder.BigramModel{Words: out.words.Labels(), End: rec.Grammar.End}
	var err error
	if model.Start, err = succ(rec.Grammar.Start); err != nil {
		return nil, err
	}
	if model.Unigram, err = succ(rec.Grammar.Unigram); err != nil {
		return nil, err
	}
	for _, h := range rec.Grammar.Histories {
		w, err := wordOf(h.Word)
		if err != nil {
			return nil, err
		}
		next, err := succ(h.Next)
		if err != nil {
			return nil, err
		}
		model.Histories = append(model.Histories, builder.History{Word: w, Next: next, End: h.End, Backoff: h.Backoff})
	}
	m := disambig.NewManager()
	g, err := builder.BuildFst(nil, builder.Grammar(model, m))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}

	// 3. L.
	prons := make([]builder.Pronunciation, 0, len(rec.Lexicon))
	for _, p := range rec.Lexicon {
		w, _ := out.words.Find(p.Word)
		seq := make([]fst.Label, 0, len(p.Phones))
		for _, name := range p.Phones {
			ph, ok := out.phones.Find(name)
			if !ok {
				return nil, fmt.Errorf("%w: word %q uses undeclared phone %q", ErrInvalidRecipe, p.Word, name)
			}
			seq = append(seq, ph)
		}
		prons = append(prons, builder.Pronunciation{Word: w, Phones: seq, Prob: p.Prob})
	}
	l, err := builder.BuildFst(nil, builder.Lexicon(phones, prons, m))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}

	// 4. H′ comes later, from the windows C discovers.
	var hopts []builder.BuilderOption
	if rec.HMM.States != 0 {
		if rec.HMM.States < builder.MinStatesPerPhone {
			return nil, fmt.Errorf("%w: hmm.states %d", ErrInvalidRecipe, rec.HMM.States)
		}
		hopts = append(hopts, builder.WithStatesPerPhone(rec.HMM.States))
	}
	if rec.HMM.SelfLoopProb != 0 {
		if !(rec.HMM.SelfLoopProb > 0 && rec.HMM.SelfLoopProb < 1) {
			return nil, fmt.Errorf("%w: hmm.self_loop_prob %v outside (0,1)", ErrInvalidRecipe, rec.HMM.SelfLoopProb)
		}
		hopts = append(hopts, builder.WithSelfLoopProb(rec.HMM.SelfLoopProb))
	}

	out.inputs = hclg.Inputs{
		G:       g,
		L:       l,
		Context: hclg.ContextParams{N: rec.Context.N, P: rec.Context.P, Phones: phones},
		H: hclg.HSourceFunc(func(info *contextfst.ILabelInfo, m *disambig.Manager) (*fst.VectorFst, hclg.TransitionModel, error) {
			h, tm, err := builder.BuildH(info, m, hopts...)
			if err != nil {
				return nil, nil, err
			}

			return h, tm, nil
		}),
		Symbols: m,
	}

	return out, nil
}
