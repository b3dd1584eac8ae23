// SPDX-License-Identifier: MIT
// Package: hclg/builder
//
// lexicon.go - implementation of the Lexicon(phones, prons, m) constructor.
//
// Contract:
//   - At least one pronunciation (else ErrEmptyInventory).
//   - Every phone of every pronunciation is declared in phones, and every
//     word label is positive (else ErrInvalidLabel).
//   - Pronunciation probabilities are in (0,1]; 0 means 1.
//   - The grammar's word #0 is allocated already (else ErrMissingSymbol).
//   - Allocates phone #0..#K right after the largest declared phone.
//
// Shape:
//   - State 0 is the start state and the only final state (weight One).
//   - Each pronunciation is a chain 0 → … → 0 whose first arc carries the
//     word on its output and the pronunciation cost; the chain ends with
//     #k when the pronunciation needs disambiguation.
//   - 0 loops on phone#0:word#0 so grammar backoff arcs survive L ∘ G.
//
// Complexity: O(total phones) states and arcs, plus the disambiguation pass.

package builder

import (
	"math"

	"github.com/katalvlaran/hclg/disambig"
	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
)

// Pronunciation is one lexicon entry.
type Pronunciation struct {
	Word   fst.Label   `yaml:"word"`
	Phones []fst.Label `yaml:"phones"`
	// Prob is the pronunciation probability given the word; 0 means 1.
	Prob float64 `yaml:"prob,omitempty"`
}

// Lexicon returns a Constructor that builds L over the declared phones.
func Lexicon(phones []fst.Label, prons []Pronunciation, m *disambig.Manager) Constructor {
	return func(f *fst.VectorFst, _ builderConfig) error {
		if err := requireEmpty(MethodLexicon, f); err != nil {
			return err
		}
		if len(prons) == 0 {
			return builderErrorf(MethodLexicon, ErrEmptyInventory, "no pronunciations")
		}
		if len(phones) == 0 {
			return builderErrorf(MethodLexicon, ErrEmptyInventory, "no phones")
		}
		if m == nil {
			return builderErrorf(MethodLexicon, ErrMissingSymbol, "nil symbol manager")
		}

		// 1. Validate labels and probabilities before touching the manager.
		known, maxPhone := labelSet(phones)
		for _, p := range phones {
			if err := validateLabel(MethodLexicon, "phone", p, nil); err != nil {
				return err
			}
		}
		seqs := make([][]fst.Label, len(prons))
		for i, p := range prons {
			if err := validateLabel(MethodLexicon, "word", p.Word, nil); err != nil {
				return err
			}
			for _, ph := range p.Phones {
				if err := validateLabel(MethodLexicon, "phone", ph, known); err != nil {
					return err
				}
			}
			if p.Prob != 0 {
				if err := validateProbability(MethodLexicon, "pronunciation probability", p.Prob); err != nil {
					return err
				}
			}
			seqs[i] = p.Phones
		}
		wordBackoff, ok := m.WordBackoff()
		if !ok {
			return builderErrorf(MethodLexicon, ErrMissingSymbol, "word-level #0 (build the grammar first)")
		}

		// 2. Decide and allocate the disambiguation suffixes.
		suffix, maxIndex := disambig.LexiconDisambig(seqs)
		symbols, err := m.AllocatePhoneSymbols(maxPhone+1, maxIndex+1)
		if err != nil {
			return builderErrorf(MethodLexicon, err, "allocate #0..#%d", maxIndex)
		}

		// 3. The loop state.
		loop := f.AddState()
		_ = f.SetStart(loop)
		_ = f.SetFinal(loop, semiring.One)

		// 4. One chain per pronunciation, in entry order.
		for i, p := range prons {
			seq := append([]fst.Label(nil), p.Phones...)
			if suffix[i] > 0 {
				seq = append(seq, symbols[suffix[i]])
			}
			w := semiring.One
			if p.Prob != 0 {
				w = -math.Log(p.Prob)
			}
			cur := loop
			for j, ph := range seq {
				next := loop
				if j < len(seq)-1 {
					next = f.AddState()
				}
				arc := fst.Arc{ILabel: ph, OLabel: fst.Epsilon, Weight: semiring.One, NextState: next}
				if j == 0 {
					arc.OLabel, arc.Weight = p.Word, w
				}
				_ = f.AddArc(cur, arc)
				cur = next
			}
		}

		// 5. Backoff loop.
		_ = f.AddArc(loop, fst.Arc{ILabel: symbols[0], OLabel: wordBackoff, Weight: semiring.One, NextState: loop})

		return nil
	}
}
