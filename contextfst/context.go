package contextfst

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
)

// ErrInvalidParameters indicates an invalid context width, central position,
// or symbol inventory.
var ErrInvalidParameters = errors.New("contextfst: invalid parameters")

// Option configures a ContextFst.
type Option func(*ContextFst)

// WithILabelInfo makes the transducer allocate into an existing arena, so
// labels stay stable across several graphs built with the same parameters.
// The arena must have the same central position. Panics on nil.
func WithILabelInfo(info *ILabelInfo) Option {
	if info == nil {
		panic("contextfst: WithILabelInfo(nil)")
	}

	return func(c *ContextFst) { c.info = info }
}

type arcKey struct {
	state  fst.StateID
	olabel fst.Label
}

// cachedArc is the memoized answer of one (state, output label) query.
type cachedArc struct {
	arc fst.Arc
	ok  bool
}

// ContextFst is the on-demand context transducer C. Its input side carries
// phone-in-context labels allocated in an ILabelInfo arena, its output side
// carries phones, disambiguation symbols and the subsequential symbol.
//
// States are the (N-1)-phone histories seen so far; the start state is the
// all-zero history. Nothing is expanded until queried, and every answer is
// cached, so repeated queries are stable. Safe for concurrent use.
type ContextFst struct {
	n, p     int
	subseq   fst.Label
	phones   []fst.Label
	disambig []fst.Label
	isPhone  map[fst.Label]bool
	isDis    map[fst.Label]bool
	info     *ILabelInfo

	mu        sync.RWMutex
	histories []Window
	stateIDs  map[string]fst.StateID
	cache     map[arcKey]cachedArc

	queried      atomic.Int64
	materialized atomic.Int64
}

// New validates the parameters and returns the transducer for context width
// n, central position p, subsequential symbol subseq, phones and
// disambiguation symbols.
func New(n, p int, subseq fst.Label, phones, disambig []fst.Label, opts ...Option) (*ContextFst, error) {
	// 1. Validate window geometry and symbol inventories.
	if n < 1 {
		return nil, fmt.Errorf("%w: context width %d < 1", ErrInvalidParameters, n)
	}
	if p < 0 || p >= n {
		return nil, fmt.Errorf("%w: central position %d outside [0,%d)", ErrInvalidParameters, p, n)
	}
	if len(phones) == 0 {
		return nil, fmt.Errorf("%w: no phones", ErrInvalidParameters)
	}
	if subseq <= 0 {
		return nil, fmt.Errorf("%w: subsequential symbol %d must be positive", ErrInvalidParameters, subseq)
	}
	c := &ContextFst{
		n:        n,
		p:        p,
		subseq:   subseq,
		phones:   append([]fst.Label(nil), phones...),
		disambig: append([]fst.Label(nil), disambig...),
		isPhone:  make(map[fst.Label]bool, len(phones)),
		isDis:    make(map[fst.Label]bool, len(disambig)),
		stateIDs: make(map[string]fst.StateID),
		cache:    make(map[arcKey]cachedArc),
	}
	seen := map[fst.Label]string{subseq: "subsequential symbol"}
	for _, ph := range phones {
		if ph <= 0 {
			return nil, fmt.Errorf("%w: phone %d must be positive", ErrInvalidParameters, ph)
		}
		if what, dup := seen[ph]; dup {
			return nil, fmt.Errorf("%w: phone %d already used as %s", ErrInvalidParameters, ph, what)
		}
		seen[ph] = "phone"
		c.isPhone[ph] = true
	}
	for _, d := range disambig {
		if d <= 0 {
			return nil, fmt.Errorf("%w: disambiguation symbol %d must be positive", ErrInvalidParameters, d)
		}
		if what, dup := seen[d]; dup {
			return nil, fmt.Errorf("%w: disambiguation symbol %d already used as %s", ErrInvalidParameters, d, what)
		}
		seen[d] = "disambiguation symbol"
		c.isDis[d] = true
	}

	// 2. Apply options and make sure the arena matches the geometry.
	for _, opt := range opts {
		opt(c)
	}
	if c.info == nil {
		c.info = NewILabelInfo(p)
	} else if c.info.Central() != p {
		return nil, fmt.Errorf("%w: arena central position %d != %d", ErrInvalidParameters, c.info.Central(), p)
	}

	// 3. The start state is the all-zero history.
	c.stateLocked(make(Window, n-1))

	return c, nil
}

// ContextWidth returns N.
func (c *ContextFst) ContextWidth() int { return c.n }

// CentralPosition returns P.
func (c *ContextFst) CentralPosition() int { return c.p }

// Subsequential returns the subsequential symbol.
func (c *ContextFst) Subsequential() fst.Label { return c.subseq }

// ILabelInfo returns the arena backing the input alphabet.
func (c *ContextFst) ILabelInfo() *ILabelInfo { return c.info }

// Start implements fst.Fst.
func (c *ContextFst) Start() fst.StateID { return 0 }

// Final implements fst.Fst: a history is final when every phone in it has
// been emitted as a central phone, i.e. positions P..N-2 hold only 0 or $.
func (c *ContextFst) Final(s fst.StateID) float64 {
	h, ok := c.history(s)
	if !ok {
		return semiring.Zero
	}
	for i := c.p; i < c.n-1; i++ {
		if h[i] != 0 && h[i] != c.subseq {
			return semiring.Zero
		}
	}

	return semiring.One
}

// Arcs implements fst.Fst by expanding every output label of s. Composition
// should go through a Matcher instead.
func (c *ContextFst) Arcs(s fst.StateID) []fst.Arc {
	var out []fst.Arc
	for _, l := range c.OutputAlphabet() {
		out = append(out, c.findOutput(s, l)...)
	}

	return out
}

// OutputAlphabet returns phones, then disambiguation symbols, then the
// subsequential symbol.
func (c *ContextFst) OutputAlphabet() []fst.Label {
	out := make([]fst.Label, 0, len(c.phones)+len(c.disambig)+1)
	out = append(out, c.phones...)
	out = append(out, c.disambig...)

	return append(out, c.subseq)
}

// InputAlphabet returns every input label allocated so far (never epsilon).
func (c *ContextFst) InputAlphabet() []fst.Label {
	return c.info.Labels()
}

// NumStatesCached returns the number of histories materialized so far.
func (c *ContextFst) NumStatesCached() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.histories)
}

// NumArcsCached returns the number of (state, output label) answers cached.
func (c *ContextFst) NumArcsCached() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cache)
}

// CheckOutputDeterministic verifies, over the cached arcs, that no state has
// two arcs with one output label and that no output is epsilon.
func (c *ContextFst) CheckOutputDeterministic() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[arcKey]bool, len(c.cache))
	for k, e := range c.cache {
		if !e.ok {
			continue
		}
		if e.arc.OLabel == fst.Epsilon || e.arc.OLabel != k.olabel {
			return fmt.Errorf("state %d output %d: %w", k.state, e.arc.OLabel, fst.ErrNotDeterministic)
		}
		key := arcKey{state: k.state, olabel: e.arc.OLabel}
		if seen[key] {
			return fmt.Errorf("state %d output %d: %w", k.state, e.arc.OLabel, fst.ErrNotDeterministic)
		}
		seen[key] = true
	}

	return nil
}

// findOutput returns the single arc of s with output olabel, if any.
func (c *ContextFst) findOutput(s fst.StateID, olabel fst.Label) []fst.Arc {
	c.queried.Add(1)
	key := arcKey{state: s, olabel: olabel}

	// 1. Fast path: the answer is already cached.
	c.mu.RLock()
	e, hit := c.cache[key]
	c.mu.RUnlock()
	if !hit {
		// 2. Discover and allocate under the exclusive lock.
		c.mu.Lock()
		if e, hit = c.cache[key]; !hit {
			e = c.computeLocked(s, olabel)
			c.cache[key] = e
			if e.ok {
				c.materialized.Add(1)
			}
		}
		c.mu.Unlock()
	}
	if !e.ok {
		return nil
	}

	return []fst.Arc{e.arc}
}

// computeLocked builds the arc of s on olabel. Caller holds c.mu for writing.
func (c *ContextFst) computeLocked(s fst.StateID, olabel fst.Label) cachedArc {
	if int(s) < 0 || int(s) >= len(c.histories) {
		return cachedArc{}
	}
	h := c.histories[s]
	last := fst.Label(0)
	if c.n > 1 {
		last = h[c.n-2]
	}
	switch {
	case c.isDis[olabel]:
		// Disambiguation symbols loop in place and keep their own window.
		ilabel := c.info.LookupOrInsert(Window{-olabel})

		return cachedArc{ok: true, arc: fst.Arc{ILabel: ilabel, OLabel: olabel, Weight: semiring.One, NextState: s}}

	case c.isPhone[olabel]:
		if last == c.subseq {
			return cachedArc{}
		}

	case olabel == c.subseq:
		if c.p == c.n-1 || h[c.p] == c.subseq {
			return cachedArc{}
		}

	default:
		return cachedArc{}
	}

	// A phone or the subsequential symbol extends the window by one.
	window := make(Window, c.n)
	copy(window, h)
	window[c.n-1] = olabel
	ilabel := PseudoEpsilon
	if window[c.p] != 0 {
		label := make(Window, c.n)
		for i, l := range window {
			if l != c.subseq {
				label[i] = l
			}
		}
		ilabel = c.info.LookupOrInsert(label)
	}
	next := c.stateLocked(window[1:])

	return cachedArc{ok: true, arc: fst.Arc{ILabel: ilabel, OLabel: olabel, Weight: semiring.One, NextState: next}}
}

// stateLocked interns history h. Caller holds c.mu for writing (or is New).
func (c *ContextFst) stateLocked(h Window) fst.StateID {
	key := h.key()
	if id, ok := c.stateIDs[key]; ok {
		return id
	}
	id := fst.StateID(len(c.histories))
	c.histories = append(c.histories, append(Window(nil), h...))
	c.stateIDs[key] = id

	return id
}

func (c *ContextFst) history(s fst.StateID) (Window, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(s) < 0 || int(s) >= len(c.histories) {
		return nil, false
	}

	return c.histories[s], true
}

// History returns a copy of the phone history of s.
func (c *ContextFst) History(s fst.StateID) (Window, bool) {
	h, ok := c.history(s)
	if !ok {
		return nil, false
	}

	return append(Window(nil), h...), true
}
