// SPDX-License-Identifier: MIT
// Package: hclg/builder
//
// grammar.go - implementation of the Grammar(model, m) constructor.
//
// Contract:
//   - model.Start is non-empty (else ErrEmptyInventory): the sentence-start
//     state has no backoff arc, so the empty sentence is never accepted.
//   - Every word used anywhere is declared in model.Words (else ErrInvalidLabel).
//   - Probabilities are in (0,1]; End and Backoff may be 0 (absent).
//   - Allocates word #0 = max(Words)+1 and puts it on the input side of
//     every backoff arc (output stays epsilon).
//
// Shape (state ids in emission order):
//   - 0: sentence start, arcs Start.
//   - 1: unigram (backoff) state, arcs Unigram, final End.
//   - 2..: one state per History, arcs Next, final End, #0 arc to 1.
//   - A word arc leads to the history state of its word when there is one,
//     else to the unigram state.
//
// The constructor does not require the model to be normalized: measuring
// how stochastic the result is belongs to the caller.

package builder

import (
	"math"

	"github.com/katalvlaran/hclg/disambig"
	"github.com/katalvlaran/hclg/fst"
)

// WordProb is one weighted successor.
type WordProb struct {
	Word fst.Label `yaml:"word"`
	Prob float64   `yaml:"prob"`
}

// History is the bigram state after one word.
type History struct {
	Word    fst.Label  `yaml:"word"`
	Next    []WordProb `yaml:"next"`
	End     float64    `yaml:"end,omitempty"`
	Backoff float64    `yaml:"backoff,omitempty"`
}

// BigramModel is a word bigram with backoff to unigrams.
type BigramModel struct {
	Words     []fst.Label `yaml:"words"`
	Start     []WordProb  `yaml:"start"`
	Unigram   []WordProb  `yaml:"unigram"`
	End       float64     `yaml:"end"`
	Histories []History   `yaml:"histories,omitempty"`
}

// Grammar returns a Constructor that builds G from model.
func Grammar(model BigramModel, m *disambig.Manager) Constructor {
	return func(f *fst.VectorFst, _ builderConfig) error {
		if err := requireEmpty(MethodGrammar, f); err != nil {
			return err
		}
		if m == nil {
			return builderErrorf(MethodGrammar, ErrMissingSymbol, "nil symbol manager")
		}
		if err := model.validate(); err != nil {
			return err
		}
		_, maxWord := labelSet(model.Words)

		// 1. States: start, unigram, then one per history.
		start, unigram := f.AddState(), f.AddState()
		_ = f.SetStart(start)
		history := make(map[fst.Label]fst.StateID, len(model.Histories))
		for _, h := range model.Histories {
			history[h.Word] = f.AddState()
		}
		target := func(w fst.Label) fst.StateID {
			if s, ok := history[w]; ok {
				return s
			}

			return unigram
		}
		emit := func(src fst.StateID, succ []WordProb) {
			for _, wp := range succ {
				_ = f.AddArc(src, fst.Arc{ILabel: wp.Word, OLabel: wp.Word, Weight: -math.Log(wp.Prob), NextState: target(wp.Word)})
			}
		}

		// 2. Arcs and final weights.
		emit(start, model.Start)
		emit(unigram, model.Unigram)
		if model.End > 0 {
			_ = f.SetFinal(unigram, -math.Log(model.End))
		}
		for _, h := range model.Histories {
			src := history[h.Word]
			emit(src, h.Next)
			if h.End > 0 {
				_ = f.SetFinal(src, -math.Log(h.End))
			}
			if h.Backoff > 0 {
				_ = f.AddArc(src, fst.Arc{ILabel: fst.Epsilon, OLabel: fst.Epsilon, Weight: -math.Log(h.Backoff), NextState: unigram})
			}
		}

		// 3. Word #0 on the backoff arcs.
		backoff := maxWord + 1
		if err := m.AllocateWordBackoff(backoff); err != nil {
			return builderErrorf(MethodGrammar, err, "allocate word #0")
		}
		disambig.MarkBackoff(f, backoff)

		return nil
	}
}

// validate checks labels and probabilities of the model.
func (model BigramModel) validate() error {
	if len(model.Words) == 0 {
		return builderErrorf(MethodGrammar, ErrEmptyInventory, "no words")
	}
	if len(model.Start) == 0 {
		return builderErrorf(MethodGrammar, ErrEmptyInventory, "no sentence-start successors")
	}
	known, _ := labelSet(model.Words)
	for _, w := range model.Words {
		if err := validateLabel(MethodGrammar, "word", w, nil); err != nil {
			return err
		}
	}
	checkAll := func(what string, succ []WordProb) error {
		for _, wp := range succ {
			if err := validateLabel(MethodGrammar, what, wp.Word, known); err != nil {
				return err
			}
			if err := validateProbability(MethodGrammar, what+" probability", wp.Prob); err != nil {
				return err
			}
		}

		return nil
	}
	checkOptional := func(what string, p float64) error {
		if p == 0 {
			return nil
		}

		return validateProbability(MethodGrammar, what, p)
	}

	if err := checkAll("start", model.Start); err != nil {
		return err
	}
	if err := checkAll("unigram", model.Unigram); err != nil {
		return err
	}
	if err := checkOptional("end", model.End); err != nil {
		return err
	}
	seen := make(map[fst.Label]bool, len(model.Histories))
	for _, h := range model.Histories {
		if err := validateLabel(MethodGrammar, "history", h.Word, known); err != nil {
			return err
		}
		if seen[h.Word] {
			return builderErrorf(MethodGrammar, ErrInvalidLabel, "history %d declared twice", h.Word)
		}
		seen[h.Word] = true
		if err := checkAll("bigram", h.Next); err != nil {
			return err
		}
		if err := checkOptional("end", h.End); err != nil {
			return err
		}
		if err := checkOptional("backoff", h.Backoff); err != nil {
			return err
		}
	}

	return nil
}
