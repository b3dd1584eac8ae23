// Composition of weighted transducers.
//
// Compose(a, b) builds the transducer mapping x to z with weight
// ⊕ over y of a(x,y) ⊗ b(y,z). States of the result are triples
// (state of a, state of b, filter state) explored breadth-first from the pair
// of start states; only reachable triples are ever created.
//
// Epsilon handling uses the two-state sequence filter: between two matched
// labels, a's output-epsilon moves are taken before b's input-epsilon moves,
// so every pair of paths is represented exactly once and no redundant
// epsilon paths are created. This matters beyond size: redundant paths would
// double-count probability mass and break stochasticity in the log semiring.
//
// Matching:
//
//   - Default: iterate a's arcs and look up b's arcs by input label (b's
//     InputMatcher if it has one, otherwise a per-state label index).
//   - WithLeftMatcher(m): iterate b's arcs and ask m for a's arcs by output
//     label. Used when a is an on-demand automaton whose states must not be
//     fully expanded (the context transducer).
//
// Complexity: O(V_out + E_out) beyond the matcher costs.
package fst

import (
	"fmt"

	"github.com/katalvlaran/hclg/semiring"
)

// ComposeOptions configures Compose.
type ComposeOptions struct {
	// LeftMatcher, if non-nil, drives matching from b's side.
	LeftMatcher OutputMatcher

	// RightMatcher, if non-nil, replaces the label index built over b.
	RightMatcher InputMatcher

	// Connect trims the result (default true).
	Connect bool

	// MaxStates aborts composition beyond this many result states (0 = no limit).
	MaxStates int
}

// ComposeOption mutates ComposeOptions.
type ComposeOption func(*ComposeOptions)

// DefaultComposeOptions returns options with trimming enabled and no matchers.
func DefaultComposeOptions() ComposeOptions {
	return ComposeOptions{Connect: true}
}

// WithLeftMatcher matches on a's output side through m.
func WithLeftMatcher(m OutputMatcher) ComposeOption {
	return func(o *ComposeOptions) { o.LeftMatcher = m }
}

// WithRightMatcher matches on b's input side through m.
func WithRightMatcher(m InputMatcher) ComposeOption {
	return func(o *ComposeOptions) { o.RightMatcher = m }
}

// WithoutConnect keeps non-coaccessible states in the result.
func WithoutConnect() ComposeOption {
	return func(o *ComposeOptions) { o.Connect = false }
}

// WithMaxComposeStates bounds the result size. Panics on n < 0.
func WithMaxComposeStates(n int) ComposeOption {
	if n < 0 {
		panic("fst: WithMaxComposeStates(n<0)")
	}

	return func(o *ComposeOptions) { o.MaxStates = n }
}

// ErrComposeTooLarge indicates composition exceeded ComposeOptions.MaxStates.
var ErrComposeTooLarge = fmt.Errorf("fst: composition exceeded state limit")

// composeKey identifies a result state.
type composeKey struct {
	s1, s2 StateID
	fs     uint8
}

// composer holds the mutable state of one Compose call.
type composer struct {
	a, b   Fst
	opts   ComposeOptions
	out    *VectorFst
	table  map[composeKey]StateID
	queue  []composeKey
	bIndex map[StateID]map[Label][]Arc
}

// Compose returns a ∘ b.
func Compose(a, b Fst, opts ...ComposeOption) (*VectorFst, error) {
	// 1. Validate inputs and resolve options.
	if a == nil || b == nil {
		return nil, ErrNilFst
	}
	cfg := DefaultComposeOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &composer{
		a:      a,
		b:      b,
		opts:   cfg,
		out:    NewVectorFst(),
		table:  make(map[composeKey]StateID),
		bIndex: make(map[StateID]map[Label][]Arc),
	}

	// 2. Empty operands compose to the empty automaton.
	if a.Start() == NoState || b.Start() == NoState {
		return c.out, nil
	}
	start, err := c.state(composeKey{s1: a.Start(), s2: b.Start()})
	if err != nil {
		return nil, err
	}
	_ = c.out.SetStart(start)

	// 3. Breadth-first expansion of reachable triples.
	for len(c.queue) > 0 {
		key := c.queue[0]
		c.queue = c.queue[1:]
		if err = c.expand(key); err != nil {
			return nil, err
		}
	}

	if cfg.Connect {
		Connect(c.out)
	}

	return c.out, nil
}

// state returns the id of key, creating and enqueueing it on first sight.
func (c *composer) state(key composeKey) (StateID, error) {
	if id, ok := c.table[key]; ok {
		return id, nil
	}
	if c.opts.MaxStates > 0 && c.out.NumStates() >= c.opts.MaxStates {
		return NoState, fmt.Errorf("%w (%d)", ErrComposeTooLarge, c.opts.MaxStates)
	}
	id := c.out.AddState()
	_ = c.out.SetFinal(id, semiring.Times(c.a.Final(key.s1), c.b.Final(key.s2)))
	c.table[key] = id
	c.queue = append(c.queue, key)

	return id, nil
}

// expand emits every arc leaving key.
func (c *composer) expand(key composeKey) error {
	src := c.table[key]

	// 1. a moves alone on an output epsilon (only before any b-epsilon move).
	if key.fs == 0 {
		for _, a1 := range c.leftEpsilons(key.s1) {
			if err := c.emit(src, Arc{ILabel: a1.ILabel, OLabel: Epsilon, Weight: a1.Weight}, composeKey{s1: a1.NextState, s2: key.s2}); err != nil {
				return err
			}
		}
	}

	// 2. b moves alone on an input epsilon.
	for _, a2 := range c.b.Arcs(key.s2) {
		if a2.ILabel != Epsilon {
			continue
		}
		if err := c.emit(src, Arc{ILabel: Epsilon, OLabel: a2.OLabel, Weight: a2.Weight}, composeKey{s1: key.s1, s2: a2.NextState, fs: 1}); err != nil {
			return err
		}
	}

	// 3. Matched moves on a non-epsilon shared label.
	if c.opts.LeftMatcher != nil {
		for _, a2 := range c.b.Arcs(key.s2) {
			if a2.ILabel == Epsilon {
				continue
			}
			for _, a1 := range c.opts.LeftMatcher.FindOutput(key.s1, a2.ILabel) {
				if err := c.match(src, a1, a2); err != nil {
					return err
				}
			}
		}

		return nil
	}
	for _, a1 := range c.a.Arcs(key.s1) {
		if a1.OLabel == Epsilon {
			continue
		}
		for _, a2 := range c.rightMatches(key.s2, a1.OLabel) {
			if err := c.match(src, a1, a2); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *composer) match(src StateID, a1, a2 Arc) error {
	return c.emit(src,
		Arc{ILabel: a1.ILabel, OLabel: a2.OLabel, Weight: semiring.Times(a1.Weight, a2.Weight)},
		composeKey{s1: a1.NextState, s2: a2.NextState})
}

func (c *composer) emit(src StateID, arc Arc, dst composeKey) error {
	id, err := c.state(dst)
	if err != nil {
		return err
	}
	arc.NextState = id

	return c.out.AddArc(src, arc)
}

func (c *composer) leftEpsilons(s StateID) []Arc {
	if c.opts.LeftMatcher != nil {
		return c.opts.LeftMatcher.FindOutput(s, Epsilon)
	}
	var out []Arc
	for _, a := range c.a.Arcs(s) {
		if a.OLabel == Epsilon {
			out = append(out, a)
		}
	}

	return out
}

func (c *composer) rightMatches(s StateID, l Label) []Arc {
	if c.opts.RightMatcher != nil {
		return c.opts.RightMatcher.FindInput(s, l)
	}
	idx, ok := c.bIndex[s]
	if !ok {
		idx = make(map[Label][]Arc)
		for _, a := range c.b.Arcs(s) {
			if a.ILabel != Epsilon {
				idx[a.ILabel] = append(idx[a.ILabel], a)
			}
		}
		c.bIndex[s] = idx
	}

	return idx[l]
}
