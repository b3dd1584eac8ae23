// Determinization in a chosen semiring.
//
// Determinize builds an automaton with at most one arc per input label leaving
// every state (input epsilons are removed along the way). Result states are
// weighted subsets of input states: each element carries a residual weight and
// a residual output string not yet emitted.
//
// For every subset and input label x:
//
//  1. Collect the destinations of every x-arc, multiplying residual weights
//     and appending output labels.
//  2. W = ⊕ of the collected weights; P = common prefix of their strings.
//  3. Divide every element by W and strip P, then close the subset over input
//     epsilons.
//  4. Emit x:P[0]/W; the rest of P is emitted on a chain of epsilon-input
//     states with weight One.
//
// In the log semiring the ⊕ of a subset's leaving weights equals the ⊕ of its
// elements' sums, so a stochastic input gives a stochastic output.
//
// Errors:
//
//	ErrNonDeterminizable - the same state is reached with different output
//	                       strings (the relation is not functional), the
//	                       final strings of a subset disagree, or the state
//	                       limit is exceeded (twins property violated).
package fst

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/katalvlaran/hclg/semiring"
)

// DefaultMaxDeterminizeStates bounds the output of Determinize.
const DefaultMaxDeterminizeStates = 1 << 20

// maxClosureRelaxations bounds epsilon-closure residual propagation.
const maxClosureRelaxations = 1 << 16

// DeterminizeOptions configures Determinize.
type DeterminizeOptions struct {
	// Delta is the quantization step used to identify subsets.
	Delta float64

	// MaxStates aborts determinization beyond this many result states.
	MaxStates int
}

// DeterminizeOption mutates DeterminizeOptions.
type DeterminizeOption func(*DeterminizeOptions)

// DefaultDeterminizeOptions returns DefaultDelta and DefaultMaxDeterminizeStates.
func DefaultDeterminizeOptions() DeterminizeOptions {
	return DeterminizeOptions{Delta: semiring.DefaultDelta, MaxStates: DefaultMaxDeterminizeStates}
}

// WithDeterminizeDelta sets the subset quantization step. Panics on delta <= 0.
func WithDeterminizeDelta(delta float64) DeterminizeOption {
	if delta <= 0 {
		panic("fst: WithDeterminizeDelta(delta<=0)")
	}

	return func(o *DeterminizeOptions) { o.Delta = delta }
}

// WithMaxDeterminizeStates sets the state limit. Panics on n <= 0.
func WithMaxDeterminizeStates(n int) DeterminizeOption {
	if n <= 0 {
		panic("fst: WithMaxDeterminizeStates(n<=0)")
	}

	return func(o *DeterminizeOptions) { o.MaxStates = n }
}

// element is one member of a weighted subset.
type element struct {
	state  StateID
	weight float64
	str    []Label
}

type determinizer struct {
	in    Fst
	k     semiring.Kind
	opts  DeterminizeOptions
	out   *VectorFst
	table map[string]StateID
	queue [][]element
}

// Determinize returns a deterministic equivalent of f computed in semiring k.
func Determinize(f Fst, k semiring.Kind, opts ...DeterminizeOption) (*VectorFst, error) {
	if f == nil {
		return nil, ErrNilFst
	}
	cfg := DefaultDeterminizeOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	d := &determinizer{in: f, k: k, opts: cfg, out: NewVectorFst(), table: make(map[string]StateID)}
	if f.Start() == NoState {
		return d.out, nil
	}

	// 1. The start subset is the epsilon closure of the start state.
	first, err := d.closure([]element{{state: f.Start(), weight: semiring.One}})
	if err != nil {
		return nil, err
	}
	start, err := d.subsetState(first)
	if err != nil {
		return nil, err
	}
	_ = d.out.SetStart(start)

	// 2. Expand subsets in discovery order.
	for len(d.queue) > 0 {
		subset := d.queue[0]
		d.queue = d.queue[1:]
		if err = d.expand(subset); err != nil {
			return nil, err
		}
	}

	return Connect(d.out), nil
}

// expand emits the final weight and every leaving arc of one subset.
func (d *determinizer) expand(subset []element) error {
	src := d.table[subsetKey(subset, d.opts.Delta)]
	if err := d.setFinal(src, subset); err != nil {
		return err
	}

	// 1. Group destinations by input label.
	groups := make(map[Label][]element)
	var labels []Label
	for _, e := range subset {
		for _, a := range d.in.Arcs(e.state) {
			if a.ILabel == Epsilon {
				continue
			}
			if _, seen := groups[a.ILabel]; !seen {
				labels = append(labels, a.ILabel)
			}
			groups[a.ILabel] = append(groups[a.ILabel], element{
				state:  a.NextState,
				weight: semiring.Times(e.weight, a.Weight),
				str:    appendLabel(e.str, a.OLabel),
			})
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	// 2. Normalize each group, close it, and emit the arc (plus string chain).
	for _, x := range labels {
		group, err := d.merge(groups[x])
		if err != nil {
			return err
		}
		w := semiring.Zero
		for _, e := range group {
			w = d.k.Plus(w, e.weight)
		}
		if semiring.IsZero(w) {
			continue
		}
		prefix := commonPrefix(group)
		for i := range group {
			group[i].weight = semiring.Divide(group[i].weight, w)
			group[i].str = group[i].str[len(prefix):]
		}
		closed, err := d.closure(group)
		if err != nil {
			return err
		}
		if len(closed) == 0 {
			continue
		}
		dst, err := d.subsetState(closed)
		if err != nil {
			return err
		}
		if err = d.emitChain(src, x, prefix, w, dst); err != nil {
			return err
		}
	}

	return nil
}

// setFinal computes the subset's final weight; a non-empty residual string is
// flushed through a chain of epsilon-input states.
func (d *determinizer) setFinal(s StateID, subset []element) error {
	w := semiring.Zero
	var str []Label
	seen := false
	for _, e := range subset {
		fw := d.in.Final(e.state)
		if semiring.IsZero(fw) {
			continue
		}
		if seen && !equalLabels(str, e.str) {
			return fmt.Errorf("final output strings differ at state %d: %w", e.state, ErrNonDeterminizable)
		}
		str, seen = e.str, true
		w = d.k.Plus(w, semiring.Times(e.weight, fw))
	}
	if !seen {
		return nil
	}
	if len(str) == 0 {
		return d.out.SetFinal(s, w)
	}
	tail := d.out.AddState()
	_ = d.out.SetFinal(tail, semiring.One)

	return d.emitChain(s, Epsilon, str, w, tail)
}

// emitChain adds src --ilabel:str[0]/w--> ... --eps:str[n-1]--> dst.
func (d *determinizer) emitChain(src StateID, ilabel Label, str []Label, w float64, dst StateID) error {
	olabel := Epsilon
	if len(str) > 0 {
		olabel = str[0]
	}
	cur := src
	in, weight := ilabel, w
	for i := 1; i < len(str); i++ {
		next := d.out.AddState()
		if err := d.out.AddArc(cur, Arc{ILabel: in, OLabel: olabel, Weight: weight, NextState: next}); err != nil {
			return err
		}
		cur, in, olabel, weight = next, Epsilon, str[i], semiring.One
	}

	return d.out.AddArc(cur, Arc{ILabel: in, OLabel: olabel, Weight: weight, NextState: dst})
}

// merge combines elements sharing a state. Different strings for one state
// mean the relation is not functional.
func (d *determinizer) merge(elems []element) ([]element, error) {
	idx := make(map[StateID]int, len(elems))
	out := make([]element, 0, len(elems))
	for _, e := range elems {
		if i, ok := idx[e.state]; ok {
			if !equalLabels(out[i].str, e.str) {
				return nil, fmt.Errorf("state %d reached with different outputs: %w", e.state, ErrNonDeterminizable)
			}
			out[i].weight = d.k.Plus(out[i].weight, e.weight)

			continue
		}
		idx[e.state] = len(out)
		out = append(out, e)
	}

	return out, nil
}

// closure extends elems over input-epsilon arcs by residual propagation and
// keeps only the elements that can still emit (final or with a non-epsilon
// input arc).
func (d *determinizer) closure(elems []element) ([]element, error) {
	idx := make(map[StateID]int, len(elems))
	var (
		out   []element
		resid []float64
		queue []int
		inQ   []bool
	)
	add := func(e element) error {
		i, ok := idx[e.state]
		if !ok {
			idx[e.state] = len(out)
			out = append(out, e)
			resid = append(resid, e.weight)
			inQ = append(inQ, true)
			queue = append(queue, len(out)-1)

			return nil
		}
		if !equalLabels(out[i].str, e.str) {
			return fmt.Errorf("state %d reached with different outputs: %w", e.state, ErrNonDeterminizable)
		}
		nw := d.k.Plus(out[i].weight, e.weight)
		if semiring.ApproxEqual(nw, out[i].weight, d.opts.Delta/16) {
			return nil
		}
		out[i].weight = nw
		resid[i] = d.k.Plus(resid[i], e.weight)
		if !inQ[i] {
			inQ[i] = true
			queue = append(queue, i)
		}

		return nil
	}
	for _, e := range elems {
		if err := add(e); err != nil {
			return nil, err
		}
	}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > maxClosureRelaxations {
			return nil, fmt.Errorf("epsilon closure did not settle: %w", ErrNonDeterminizable)
		}
		i := queue[0]
		queue = queue[1:]
		inQ[i] = false
		r := resid[i]
		resid[i] = semiring.Zero
		src := out[i]
		for _, a := range d.in.Arcs(src.state) {
			if a.ILabel != Epsilon {
				continue
			}
			if err := add(element{
				state:  a.NextState,
				weight: semiring.Times(r, a.Weight),
				str:    appendLabel(src.str, a.OLabel),
			}); err != nil {
				return nil, err
			}
		}
	}

	kept := out[:0]
	for _, e := range out {
		if d.emits(e.state) {
			kept = append(kept, e)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].state < kept[j].state })

	return kept, nil
}

func (d *determinizer) emits(s StateID) bool {
	if !semiring.IsZero(d.in.Final(s)) {
		return true
	}
	for _, a := range d.in.Arcs(s) {
		if a.ILabel != Epsilon {
			return true
		}
	}

	return false
}

// subsetState returns the id of a closed subset, creating it on first sight.
func (d *determinizer) subsetState(subset []element) (StateID, error) {
	key := subsetKey(subset, d.opts.Delta)
	if id, ok := d.table[key]; ok {
		return id, nil
	}
	if d.out.NumStates() >= d.opts.MaxStates {
		return NoState, fmt.Errorf("state limit %d exceeded: %w", d.opts.MaxStates, ErrNonDeterminizable)
	}
	id := d.out.AddState()
	d.table[key] = id
	d.queue = append(d.queue, subset)

	return id, nil
}

// subsetKey renders a sorted subset with quantized weights.
func subsetKey(subset []element, delta float64) string {
	var b strings.Builder
	for _, e := range subset {
		b.WriteString(strconv.Itoa(int(e.state)))
		b.WriteByte('/')
		b.WriteString(strconv.FormatFloat(semiring.Quantize(e.weight, delta), 'g', -1, 64))
		for _, l := range e.str {
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(int(l)))
		}
		b.WriteByte(';')
	}

	return b.String()
}

func commonPrefix(elems []element) []Label {
	if len(elems) == 0 {
		return nil
	}
	p := elems[0].str
	for _, e := range elems[1:] {
		n := 0
		for n < len(p) && n < len(e.str) && p[n] == e.str[n] {
			n++
		}
		p = p[:n]
	}

	return append([]Label(nil), p...)
}

func appendLabel(str []Label, l Label) []Label {
	if l == Epsilon {
		return str
	}
	out := make([]Label, len(str)+1)
	copy(out, str)
	out[len(str)] = l

	return out
}

func equalLabels(a, b []Label) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
