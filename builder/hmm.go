// SPDX-License-Identifier: MIT
// Package: hclg/builder
//
// hmm.go - the toy transition model and the HMM(tm, info, m) constructor.
//
// Transition-id layout (model index m over the context-dependent phones in
// label order, HMM state i in 0..S-1):
//
//	entry(m, i) = 1 + 2·(m·S + i)     enters state i; H′ carries it
//	loop(m, i)  = entry(m, i) + 1     self-loop of state i; added later
//
// Both ids of a state share the class m·S + i. Anything else has class -1.
//
// H′ shape:
//   - State 0 is the start state and the only final state (weight One).
//   - Per context-dependent phone w: 0 -entry(m,0):w-> … -entry(m,S-1):ε-> 0.
//   - Per disambiguation label d of C (and #-1): a loop 0 -t_d:d-> 0 where
//     t_d is a transition-level disambiguation symbol allocated after the
//     last transition-id.
//   - Every arc weighs One: leaving an HMM state is certain once the
//     self-loop is removed, so H′ composed with any C-label sequence has
//     exactly one path.

package builder

import (
	"github.com/katalvlaran/hclg/contextfst"
	"github.com/katalvlaran/hclg/disambig"
	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
)

// NoClass is the class of labels that enter no HMM state.
const NoClass = -1

// HMMTransitions is the transition model behind H′. Immutable once built,
// so it is safe for concurrent reads.
type HMMTransitions struct {
	statesPerPhone int
	selfLoopProb   float64
	windows        []fst.Label // C input label per model index
	index          map[fst.Label]int
}

// NewHMMTransitions lays out transition-ids for every context-dependent
// phone registered in info so far.
func NewHMMTransitions(info *contextfst.ILabelInfo, opts ...BuilderOption) (*HMMTransitions, error) {
	if info == nil {
		return nil, builderErrorf(MethodTransitions, ErrEmptyInventory, "nil label arena")
	}
	cfg := newBuilderConfig(opts...)
	tm := &HMMTransitions{
		statesPerPhone: cfg.statesPerPhone,
		selfLoopProb:   cfg.selfLoopProb,
		index:          make(map[fst.Label]int),
	}
	for _, l := range info.Labels() {
		if info.IsPseudoEpsilon(l) || info.IsDisambig(l) {
			continue
		}
		if _, ok := info.Phone(l); !ok {
			continue
		}
		tm.index[l] = len(tm.windows)
		tm.windows = append(tm.windows, l)
	}
	if len(tm.windows) == 0 {
		return nil, builderErrorf(MethodTransitions, ErrEmptyInventory, "no context-dependent phones")
	}

	return tm, nil
}

// StatesPerPhone returns S.
func (tm *HMMTransitions) StatesPerPhone() int { return tm.statesPerPhone }

// SelfLoopProb returns the self-loop probability shared by every state.
func (tm *HMMTransitions) SelfLoopProb() float64 { return tm.selfLoopProb }

// Windows returns the C input labels that have an HMM, in model order.
func (tm *HMMTransitions) Windows() []fst.Label {
	return append([]fst.Label(nil), tm.windows...)
}

// NumTransitionIDs returns the number of transition-ids (entries and loops).
func (tm *HMMTransitions) NumTransitionIDs() int {
	return 2 * len(tm.windows) * tm.statesPerPhone
}

// EntryID returns the transition-id entering HMM state i of window w.
func (tm *HMMTransitions) EntryID(w fst.Label, i int) (fst.Label, bool) {
	m, ok := tm.index[w]
	if !ok || i < 0 || i >= tm.statesPerPhone {
		return fst.NoLabel, false
	}

	return fst.Label(1 + 2*(m*tm.statesPerPhone+i)), true
}

// Describe decodes a transition-id.
func (tm *HMMTransitions) Describe(tid fst.Label) (w fst.Label, state int, loop bool, ok bool) {
	c := tm.Class(tid)
	if c == NoClass {
		return fst.NoLabel, 0, false, false
	}

	return tm.windows[c/tm.statesPerPhone], c % tm.statesPerPhone, (tid-1)%2 == 1, true
}

// Class returns the HMM state a transition-id enters, or NoClass.
func (tm *HMMTransitions) Class(tid fst.Label) int {
	if tid < 1 || int(tid) > tm.NumTransitionIDs() {
		return NoClass
	}

	return int(tid-1) / 2
}

// SelfLoop returns the self-loop transition-id and probability of a class.
func (tm *HMMTransitions) SelfLoop(class int) (fst.Label, float64, bool) {
	if class < 0 || class >= len(tm.windows)*tm.statesPerPhone {
		return fst.NoLabel, 0, false
	}

	return fst.Label(2*class + 2), tm.selfLoopProb, true
}

// HMM returns a Constructor that builds H′ for tm. It allocates the
// transition-level disambiguation symbols in m, one per disambiguation
// label of info plus #-1, in label order.
func HMM(tm *HMMTransitions, info *contextfst.ILabelInfo, m *disambig.Manager) Constructor {
	return func(f *fst.VectorFst, _ builderConfig) error {
		if err := requireEmpty(MethodHMM, f); err != nil {
			return err
		}
		if tm == nil || info == nil {
			return builderErrorf(MethodHMM, ErrEmptyInventory, "nil transition model or label arena")
		}
		if m == nil {
			return builderErrorf(MethodHMM, ErrMissingSymbol, "nil symbol manager")
		}

		// 1. Start state.
		start := f.AddState()
		_ = f.SetStart(start)
		_ = f.SetFinal(start, semiring.One)

		// 2. One chain per context-dependent phone.
		for _, w := range tm.windows {
			cur := start
			for i := 0; i < tm.statesPerPhone; i++ {
				next := start
				if i < tm.statesPerPhone-1 {
					next = f.AddState()
				}
				tid, _ := tm.EntryID(w, i)
				arc := fst.Arc{ILabel: tid, OLabel: fst.Epsilon, Weight: semiring.One, NextState: next}
				if i == 0 {
					arc.OLabel = w
				}
				_ = f.AddArc(cur, arc)
				cur = next
			}
		}

		// 3. Disambiguation loops.
		outs := []fst.Label{contextfst.PseudoEpsilon}
		for _, l := range info.Labels() {
			if info.IsDisambig(l) {
				outs = append(outs, l)
			}
		}
		tids, err := m.AllocateTransitionSymbols(fst.Label(tm.NumTransitionIDs()+1), len(outs))
		if err != nil {
			return builderErrorf(MethodHMM, err, "allocate %d transition-level symbols", len(outs))
		}
		for k, d := range outs {
			_ = f.AddArc(start, fst.Arc{ILabel: tids[k], OLabel: d, Weight: semiring.One, NextState: start})
		}

		return nil
	}
}

// BuildH lays out the transition model for info and builds H′ with it.
func BuildH(info *contextfst.ILabelInfo, m *disambig.Manager, opts ...BuilderOption) (*fst.VectorFst, *HMMTransitions, error) {
	tm, err := NewHMMTransitions(info, opts...)
	if err != nil {
		return nil, nil, err
	}
	h, err := BuildFst(nil, HMM(tm, info, m))
	if err != nil {
		return nil, nil, err
	}

	return h, tm, nil
}
