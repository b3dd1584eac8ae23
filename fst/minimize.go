// Minimization by partition refinement.
//
// Minimize merges states that are bisimilar when every arc is read as one
// encoded symbol (input label, output label, quantized weight). Refinement
// starts from the partition induced by quantized final weights and splits
// classes by the multiset of (encoded symbol, destination class) until
// nothing changes. Multisets rather than sets keep duplicate arcs apart, so
// merging never changes a state's ⊕-sum in the log semiring. The input need
// not be deterministic.
//
// By default the automaton is pushed towards the start first (as generic
// libraries do), which exposes more equivalent states but rewrites weights.
// WithoutPushing() keeps every weight exactly as it is.
//
// Complexity: O(R · E log E) where R is the number of refinement rounds.
package fst

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/katalvlaran/hclg/semiring"
)

// MinimizeOptions configures Minimize.
type MinimizeOptions struct {
	// Push reweights the automaton with Push before refinement.
	Push bool

	// Semiring is the semiring used for pushing.
	Semiring semiring.Kind

	// Delta is the weight quantization step for encoding.
	Delta float64
}

// MinimizeOption mutates MinimizeOptions.
type MinimizeOption func(*MinimizeOptions)

// DefaultMinimizeOptions pushes in the log semiring with DefaultDelta.
func DefaultMinimizeOptions() MinimizeOptions {
	return MinimizeOptions{Push: true, Semiring: semiring.Log, Delta: semiring.DefaultDelta}
}

// WithoutPushing disables weight pushing.
func WithoutPushing() MinimizeOption {
	return func(o *MinimizeOptions) { o.Push = false }
}

// WithPushSemiring sets the semiring used for pushing.
func WithPushSemiring(k semiring.Kind) MinimizeOption {
	return func(o *MinimizeOptions) { o.Semiring = k }
}

// WithMinimizeDelta sets the quantization step. Panics on delta <= 0.
func WithMinimizeDelta(delta float64) MinimizeOption {
	if delta <= 0 {
		panic("fst: WithMinimizeDelta(delta<=0)")
	}

	return func(o *MinimizeOptions) { o.Delta = delta }
}

// EncodeTable maps (input label, output label, quantized weight) triples to
// dense acceptor symbols starting at 1.
type EncodeTable struct {
	delta float64
	ids   map[encodeKey]Label
	keys  []encodeKey
}

type encodeKey struct {
	ilabel, olabel Label
	weight         float64
}

// NewEncodeTable returns an empty table quantizing weights by delta.
func NewEncodeTable(delta float64) *EncodeTable {
	return &EncodeTable{delta: delta, ids: make(map[encodeKey]Label)}
}

// Encode returns the symbol of a, allocating one on first sight.
func (t *EncodeTable) Encode(a Arc) Label {
	k := encodeKey{ilabel: a.ILabel, olabel: a.OLabel, weight: semiring.Quantize(a.Weight, t.delta)}
	if id, ok := t.ids[k]; ok {
		return id
	}
	t.keys = append(t.keys, k)
	id := Label(len(t.keys))
	t.ids[k] = id

	return id
}

// Decode returns the triple behind symbol l.
func (t *EncodeTable) Decode(l Label) (ilabel, olabel Label, weight float64, ok bool) {
	if l < 1 || int(l) > len(t.keys) {
		return NoLabel, NoLabel, semiring.Zero, false
	}
	k := t.keys[l-1]

	return k.ilabel, k.olabel, k.weight, true
}

// Len returns the number of allocated symbols.
func (t *EncodeTable) Len() int { return len(t.keys) }

// Minimize returns a minimal automaton equivalent to f. f is not modified.
func Minimize(f *VectorFst, opts ...MinimizeOption) (*VectorFst, error) {
	if f == nil {
		return nil, ErrNilFst
	}
	cfg := DefaultMinimizeOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	// 1. Work on a trimmed copy, pushed if requested.
	work := f.Copy()
	if cfg.Push {
		if err := Push(work, cfg.Semiring, cfg.Delta); err != nil {
			return nil, fmt.Errorf("minimize: %w", err)
		}
	}
	Connect(work)
	if work.Start() == NoState {
		return work, nil
	}

	// 2. Encode arcs and refine the partition.
	table := NewEncodeTable(cfg.Delta)
	class := refine(work, table, cfg.Delta)

	// 3. Build the quotient from one representative per class.
	return quotient(work, class), nil
}

// refine returns the coarsest stable class assignment.
func refine(f *VectorFst, table *EncodeTable, delta float64) []int {
	n := f.NumStates()
	codes := make([][]Label, n)
	for s := 0; s < n; s++ {
		arcs := f.Arcs(StateID(s))
		codes[s] = make([]Label, len(arcs))
		for i, a := range arcs {
			codes[s][i] = table.Encode(a)
		}
	}

	class := make([]int, n)
	finals := make(map[float64]int)
	for s := 0; s < n; s++ {
		q := semiring.Quantize(f.Final(StateID(s)), delta)
		id, ok := finals[q]
		if !ok {
			id = len(finals)
			finals[q] = id
		}
		class[s] = id
	}
	numClasses := len(finals)

	type pair struct {
		code Label
		dst  int
	}
	for {
		sigs := make(map[string]int, numClasses)
		next := make([]int, n)
		for s := 0; s < n; s++ {
			arcs := f.Arcs(StateID(s))
			pairs := make([]pair, len(arcs))
			for i, a := range arcs {
				pairs[i] = pair{code: codes[s][i], dst: class[a.NextState]}
			}
			sort.Slice(pairs, func(i, j int) bool {
				if pairs[i].code != pairs[j].code {
					return pairs[i].code < pairs[j].code
				}

				return pairs[i].dst < pairs[j].dst
			})
			var b strings.Builder
			b.WriteString(strconv.Itoa(class[s]))
			for _, p := range pairs {
				b.WriteByte('|')
				b.WriteString(strconv.Itoa(int(p.code)))
				b.WriteByte(':')
				b.WriteString(strconv.Itoa(p.dst))
			}
			key := b.String()
			id, ok := sigs[key]
			if !ok {
				id = len(sigs)
				sigs[key] = id
			}
			next[s] = id
		}
		class = next
		if len(sigs) == numClasses {
			return class
		}
		numClasses = len(sigs)
	}
}

// quotient collapses every class into its lowest-numbered state.
func quotient(f *VectorFst, class []int) *VectorFst {
	numClasses := 0
	for _, c := range class {
		if c+1 > numClasses {
			numClasses = c + 1
		}
	}
	rep := make([]StateID, numClasses)
	for i := range rep {
		rep[i] = NoState
	}
	for s := range class {
		if rep[class[s]] == NoState {
			rep[class[s]] = StateID(s)
		}
	}

	out := NewVectorFst()
	out.AddStates(numClasses)
	for c, s := range rep {
		_ = out.SetFinal(StateID(c), f.Final(s))
		for _, a := range f.Arcs(s) {
			a.NextState = StateID(class[a.NextState])
			_ = out.AddArc(StateID(c), a)
		}
	}
	_ = out.SetStart(StateID(class[f.Start()]))

	return out
}
