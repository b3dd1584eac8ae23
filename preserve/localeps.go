// SPDX-License-Identifier: MIT
//
// File: localeps.go
// Role: local input-epsilon removal that never grows the automaton.
// Policy:
//   - Candidates are found structurally; each one is then verified twice,
//     once for tropical path equivalence and once against the log-semiring
//     stochasticity envelope of the input. A merge is applied only when both
//     verifications accept it.
//   - A merge removes one arc and one state. Nothing is ever added.
//   - States are renumbered once, at the end.

package preserve

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
	"github.com/katalvlaran/hclg/stochastic"
)

// DefaultMaxRounds bounds the number of candidate sweeps.
const DefaultMaxRounds = 64

// EpsReport summarises one LocalEpsilonRemoval run.
type EpsReport struct {
	Candidates       int `json:"candidates" yaml:"candidates"`
	Merged           int `json:"merged" yaml:"merged"`
	RejectedTropical int `json:"rejected_tropical" yaml:"rejected_tropical"`
	RejectedLog      int `json:"rejected_log" yaml:"rejected_log"`
	StatesBefore     int `json:"states_before" yaml:"states_before"`
	StatesAfter      int `json:"states_after" yaml:"states_after"`
	ArcsBefore       int `json:"arcs_before" yaml:"arcs_before"`
	ArcsAfter        int `json:"arcs_after" yaml:"arcs_after"`
	EpsilonsBefore   int `json:"epsilons_before" yaml:"epsilons_before"`
	EpsilonsAfter    int `json:"epsilons_after" yaml:"epsilons_after"`
}

// EpsOptions configures LocalEpsilonRemoval.
type EpsOptions struct {
	// Tolerance is the slack of both verifications.
	Tolerance float64

	// MaxRounds bounds the number of sweeps.
	MaxRounds int

	// Logger receives a Debug record per skipped merge.
	Logger *slog.Logger
}

// EpsOption mutates EpsOptions.
type EpsOption func(*EpsOptions)

// DefaultEpsOptions returns Tolerance=semiring.DefaultDelta,
// MaxRounds=DefaultMaxRounds and slog.Default().
func DefaultEpsOptions() EpsOptions {
	return EpsOptions{Tolerance: semiring.DefaultDelta, MaxRounds: DefaultMaxRounds, Logger: slog.Default()}
}

// WithEpsTolerance sets the verification slack. Panics on tol < 0.
func WithEpsTolerance(tol float64) EpsOption {
	if tol < 0 {
		panic("preserve: WithEpsTolerance(tol<0)")
	}

	return func(o *EpsOptions) { o.Tolerance = tol }
}

// WithMaxRounds bounds the sweeps. Panics on n < 1.
func WithMaxRounds(n int) EpsOption {
	if n < 1 {
		panic("preserve: WithMaxRounds(n<1)")
	}

	return func(o *EpsOptions) { o.MaxRounds = n }
}

// WithEpsLogger sets the logger. Panics on nil.
func WithEpsLogger(l *slog.Logger) EpsOption {
	if l == nil {
		panic("preserve: WithEpsLogger(nil)")
	}

	return func(o *EpsOptions) { o.Logger = l }
}

type mergeKind int

const (
	// mergeForward folds the arc's target into its source.
	mergeForward mergeKind = iota
	// mergeBackward redirects the source's entering arcs to the target.
	mergeBackward
)

func (k mergeKind) String() string {
	if k == mergeForward {
		return "forward"
	}

	return "backward"
}

type arcRef struct {
	state fst.StateID
	index int
}

type redirect struct {
	ref arcRef
	arc fst.Arc
}

// mergePlan is a merge described but not applied.
type mergePlan struct {
	kind     mergeKind
	src, dst fst.StateID
	arc      fst.Arc

	// forward: the new arc list and final weight of src
	arcs  []fst.Arc
	moved int // arcs[moved:] came from dst
	final float64

	// backward: replacements for the arcs entering src
	redirects []redirect
}

type candidateKey struct {
	src, dst fst.StateID
	kind     mergeKind
}

type remover struct {
	f        *fst.VectorFst
	env      stochastic.Bounds
	tol      float64
	logger   *slog.Logger
	removed  []bool
	seen     map[candidateKey]bool
	rejected map[candidateKey]bool
	rep      *EpsReport
}

// LocalEpsilonRemoval removes input-epsilon arcs of f where that can be done
// by merging two states, without adding arcs or states, without changing the
// weight of any path in the tropical semiring and without moving any state
// sum outside the log-semiring stochasticity envelope of f. f is not modified.
func LocalEpsilonRemoval(f *fst.VectorFst, opts ...EpsOption) (*fst.VectorFst, EpsReport, error) {
	if f == nil {
		return nil, EpsReport{}, fst.ErrNilFst
	}
	cfg := DefaultEpsOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	out := f.Copy()
	rep := EpsReport{
		StatesBefore:   out.NumStates(),
		ArcsBefore:     out.TotalArcs(),
		EpsilonsBefore: countInputEpsilons(out),
	}
	bounds, err := stochastic.Measure(out, semiring.Log)
	if errors.Is(err, stochastic.ErrEmpty) {
		rep.StatesAfter, rep.ArcsAfter, rep.EpsilonsAfter = rep.StatesBefore, rep.ArcsBefore, rep.EpsilonsBefore

		return out, rep, nil
	}
	if err != nil {
		return nil, rep, fmt.Errorf("local epsilon removal: %w", err)
	}

	r := &remover{
		f:        out,
		env:      bounds.Envelope(),
		tol:      cfg.Tolerance,
		logger:   cfg.Logger,
		removed:  make([]bool, out.NumStates()),
		seen:     make(map[candidateKey]bool),
		rejected: make(map[candidateKey]bool),
		rep:      &rep,
	}
	for round := 0; round < cfg.MaxRounds; round++ {
		if r.sweep() == 0 {
			break
		}
	}

	keep := make([]bool, len(r.removed))
	for s := range keep {
		keep[s] = !r.removed[s]
	}
	out.DeleteStates(keep)
	fst.Connect(out)

	rep.StatesAfter = out.NumStates()
	rep.ArcsAfter = out.TotalArcs()
	rep.EpsilonsAfter = countInputEpsilons(out)

	return out, rep, nil
}

// sweep applies every verified merge whose states were not touched earlier in
// the same sweep and returns how many it applied.
func (r *remover) sweep() int {
	n := r.f.NumStates()
	in := make([][]arcRef, n)
	for s := 0; s < n; s++ {
		if r.removed[s] {
			continue
		}
		for i, a := range r.f.Arcs(fst.StateID(s)) {
			in[a.NextState] = append(in[a.NextState], arcRef{state: fst.StateID(s), index: i})
		}
	}

	touched := make([]bool, n)
	merged := 0
	for s := 0; s < n; s++ {
		src := fst.StateID(s)
		if r.removed[s] || touched[s] {
			continue
		}
		for i, a := range r.f.Arcs(src) {
			if a.ILabel != fst.Epsilon || a.NextState == src {
				continue
			}
			p, ok := r.plan(src, i, a, in)
			if !ok {
				continue
			}
			involved := r.involved(p)
			if anyTouched(touched, involved) {
				continue
			}
			if !r.verify(p) {
				continue
			}
			r.apply(p)
			for _, t := range involved {
				touched[t] = true
			}
			merged++

			break
		}
	}

	return merged
}

// plan finds a structural merge for the arc src→a.NextState, preferring a
// forward merge.
func (r *remover) plan(src fst.StateID, i int, a fst.Arc, in [][]arcRef) (mergePlan, bool) {
	dst := a.NextState
	if len(in[dst]) == 1 && dst != r.f.Start() {
		if p, ok := r.forward(src, i, a); ok {
			return p, true
		}
	}
	if len(r.f.Arcs(src)) == 1 && semiring.IsZero(r.f.Final(src)) && src != r.f.Start() && len(in[src]) > 0 {
		return r.backward(src, a, in[src])
	}

	return mergePlan{}, false
}

func (r *remover) forward(src fst.StateID, i int, a fst.Arc) (mergePlan, bool) {
	dst := a.NextState
	srcArcs, dstArcs := r.f.Arcs(src), r.f.Arcs(dst)

	arcs := make([]fst.Arc, 0, len(srcArcs)-1+len(dstArcs))
	arcs = append(arcs, srcArcs[:i]...)
	arcs = append(arcs, srcArcs[i+1:]...)
	moved := len(arcs)
	for _, b := range dstArcs {
		if b.NextState == dst {
			r.skip(mergeForward, src, dst, "self-loop on target")

			return mergePlan{}, false
		}
		il, ol, ok := combine(a, b)
		if !ok {
			r.skip(mergeForward, src, dst, "labels")

			return mergePlan{}, false
		}
		arcs = append(arcs, fst.Arc{ILabel: il, OLabel: ol, Weight: semiring.Times(a.Weight, b.Weight), NextState: b.NextState})
	}
	dstFinal := r.f.Final(dst)
	if !semiring.IsZero(dstFinal) && a.OLabel != fst.Epsilon {
		r.skip(mergeForward, src, dst, "output on final arc")

		return mergePlan{}, false
	}

	p := mergePlan{
		kind:  mergeForward,
		src:   src,
		dst:   dst,
		arc:   a,
		arcs:  arcs,
		moved: moved,
		final: semiring.Log.Plus(r.f.Final(src), semiring.Times(a.Weight, dstFinal)),
	}
	r.candidate(p)

	return p, true
}

func (r *remover) backward(src fst.StateID, a fst.Arc, entering []arcRef) (mergePlan, bool) {
	p := mergePlan{kind: mergeBackward, src: src, dst: a.NextState, arc: a}
	for _, ref := range entering {
		c := r.f.Arcs(ref.state)[ref.index]
		il, ol, ok := combine(c, a)
		if !ok {
			r.skip(mergeBackward, src, a.NextState, "labels")

			return mergePlan{}, false
		}
		p.redirects = append(p.redirects, redirect{
			ref: ref,
			arc: fst.Arc{ILabel: il, OLabel: ol, Weight: semiring.Times(c.Weight, a.Weight), NextState: a.NextState},
		})
	}
	r.candidate(p)

	return p, true
}

// involved lists the states whose arcs or entering arcs a merge rewrites.
func (r *remover) involved(p mergePlan) []fst.StateID {
	out := []fst.StateID{p.src, p.dst}
	if p.kind == mergeForward {
		for _, b := range r.f.Arcs(p.dst) {
			out = append(out, b.NextState)
		}

		return out
	}
	for _, rd := range p.redirects {
		out = append(out, rd.ref.state)
	}

	return out
}

func (r *remover) verify(p mergePlan) bool {
	key := candidateKey{src: p.src, dst: p.dst, kind: p.kind}
	if !tropicalCheck(r.f, p, r.tol) {
		if !r.rejected[key] {
			r.rejected[key] = true
			r.rep.RejectedTropical++
		}
		r.skip(p.kind, p.src, p.dst, "tropical")

		return false
	}
	if !logCheck(r.f, p, r.env, r.tol) {
		if !r.rejected[key] {
			r.rejected[key] = true
			r.rep.RejectedLog++
		}
		r.skip(p.kind, p.src, p.dst, "log")

		return false
	}

	return true
}

func (r *remover) apply(p mergePlan) {
	switch p.kind {
	case mergeForward:
		_ = r.f.SetArcs(p.src, p.arcs)
		_ = r.f.SetFinal(p.src, p.final)
		r.f.DeleteArcs(p.dst)
		_ = r.f.SetFinal(p.dst, semiring.Zero)
		r.removed[p.dst] = true
	case mergeBackward:
		for _, rd := range p.redirects {
			arcs := append([]fst.Arc(nil), r.f.Arcs(rd.ref.state)...)
			arcs[rd.ref.index] = rd.arc
			_ = r.f.SetArcs(rd.ref.state, arcs)
		}
		r.f.DeleteArcs(p.src)
		r.removed[p.src] = true
	}
	r.rep.Merged++
}

func (r *remover) candidate(p mergePlan) {
	key := candidateKey{src: p.src, dst: p.dst, kind: p.kind}
	if !r.seen[key] {
		r.seen[key] = true
		r.rep.Candidates++
	}
}

func (r *remover) skip(kind mergeKind, src, dst fst.StateID, reason string) {
	r.logger.Debug("preserve: epsilon merge skipped",
		slog.String("merge", kind.String()),
		slog.Int("src", int(src)),
		slog.Int("dst", int(dst)),
		slog.String("reason", reason))
}

// tropicalCheck compares the tropical weight of leaving src through a final
// weight before and after a forward merge. Rewritten arcs carry exact
// ⊗-products, so the final weight, which the merge ⊕-combines in the log
// semiring, is the only place where the two semirings can disagree.
func tropicalCheck(f *fst.VectorFst, p mergePlan, delta float64) bool {
	if p.kind != mergeForward {
		return true
	}
	before := semiring.Tropical.Plus(f.Final(p.src), semiring.Times(p.arc.Weight, f.Final(p.dst)))

	return semiring.ApproxEqual(before, p.final, delta)
}

// logCheck recomputes the log-semiring sums of the states whose arcs change
// and requires each to stay inside env.
func logCheck(f *fst.VectorFst, p mergePlan, env stochastic.Bounds, tol float64) bool {
	inside := func(sum float64) bool {
		v := -sum
		return v >= env.Min-tol && v <= env.Max+tol
	}

	if p.kind == mergeForward {
		sum := p.final
		for _, a := range p.arcs {
			sum = semiring.Log.Plus(sum, a.Weight)
		}

		return inside(sum)
	}

	replaced := make(map[fst.StateID]map[int]fst.Arc)
	for _, rd := range p.redirects {
		if replaced[rd.ref.state] == nil {
			replaced[rd.ref.state] = make(map[int]fst.Arc)
		}
		replaced[rd.ref.state][rd.ref.index] = rd.arc
	}
	for s, repl := range replaced {
		sum := f.Final(s)
		for i, a := range f.Arcs(s) {
			if ra, ok := repl[i]; ok {
				a = ra
			}
			sum = semiring.Log.Plus(sum, a.Weight)
		}
		if !inside(sum) {
			return false
		}
	}

	return true
}

// combine returns the labels of the single arc equivalent to first followed
// by second, or ok=false if both carry a label on the same side.
func combine(first, second fst.Arc) (il, ol fst.Label, ok bool) {
	il, ok = combineSide(first.ILabel, second.ILabel)
	if !ok {
		return fst.NoLabel, fst.NoLabel, false
	}
	ol, ok = combineSide(first.OLabel, second.OLabel)
	if !ok {
		return fst.NoLabel, fst.NoLabel, false
	}

	return il, ol, true
}

func combineSide(a, b fst.Label) (fst.Label, bool) {
	switch {
	case a == fst.Epsilon:
		return b, true
	case b == fst.Epsilon:
		return a, true
	default:
		return fst.NoLabel, false
	}
}

func anyTouched(touched []bool, states []fst.StateID) bool {
	for _, s := range states {
		if touched[s] {
			return true
		}
	}

	return false
}

func countInputEpsilons(f *fst.VectorFst) int {
	n := 0
	for s := 0; s < f.NumStates(); s++ {
		for _, a := range f.Arcs(fst.StateID(s)) {
			if a.ILabel == fst.Epsilon {
				n++
			}
		}
	}

	return n
}
