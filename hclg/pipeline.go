// SPDX-License-Identifier: MIT
// Package: hclg
//
// pipeline.go - the Pipeline object and Build.
//
// Stage order and contents:
//
//	LG                     min(det(L ∘ G))                    checked against G
//	CLG                    min(det(C ∘ LG$))                  checked against LG
//	HCLG-raw               H′ ∘ CLG                           checked against CLG
//	HCLG-det-min           min(det(HCLG-raw))                 checked against HCLG-raw
//	HCLG-disambig-removed  min(eps(strip(HCLG-det-min)))      checked against HCLG-det-min
//	HCLG-final             asl(HCLG-disambig-removed)         exempt, logged only
//
// LG$ is LG with the subsequential loop. det is log-semiring determinization
// and min never pushes weights. eps is local epsilon removal, skipped when
// Config.LocalEpsRemoval is off.
//
// Errors: every failure is a *StageError wrapping the cause. No partial
// result is returned.

package hclg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/hclg/contextfst"
	"github.com/katalvlaran/hclg/disambig"
	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/preserve"
	"github.com/katalvlaran/hclg/semiring"
	"github.com/katalvlaran/hclg/stochastic"
)

const tracerName = "github.com/katalvlaran/hclg/hclg"

// ContextParams describes C. N == 0 takes N and P from Config.Context.
// Subsequential == 0 picks the label after the largest input label of L.
// Empty Phones means every input label of L that is not a phone-level
// disambiguation symbol.
type ContextParams struct {
	N             int
	P             int
	Phones        []fst.Label
	Subsequential fst.Label
}

// HSource builds H′ (H without self-loops) and its transition model once
// the context-dependent labels are known. The output side of H′ is the
// input alphabet of C, disambiguation labels included.
type HSource interface {
	BuildH(info *contextfst.ILabelInfo, m *disambig.Manager) (*fst.VectorFst, TransitionModel, error)
}

// HSourceFunc adapts a function to HSource.
type HSourceFunc func(info *contextfst.ILabelInfo, m *disambig.Manager) (*fst.VectorFst, TransitionModel, error)

// BuildH calls fn.
func (fn HSourceFunc) BuildH(info *contextfst.ILabelInfo, m *disambig.Manager) (*fst.VectorFst, TransitionModel, error) {
	return fn(info, m)
}

// Inputs are the automata and symbols of one build. Symbols must already
// hold the word-level #0 and the phone-level symbols used by L and G; Build
// adds the context and transition levels.
type Inputs struct {
	G       *fst.VectorFst
	L       *fst.VectorFst
	Context ContextParams
	H       HSource
	Symbols *disambig.Manager
}

// Result is a finished build.
type Result struct {
	Graph      *fst.VectorFst
	Stages     []StageResult
	ILabelInfo *contextfst.ILabelInfo
	BuildID    string
}

// Stage returns the result of stage s.
func (r *Result) Stage(s Stage) (StageResult, bool) {
	for _, sr := range r.Stages {
		if sr.Stage == s {
			return sr, true
		}
	}

	return StageResult{}, false
}

// Pipeline runs builds. It holds no per-build state, so one Pipeline may
// run several builds one after another or concurrently.
type Pipeline struct {
	cfg            Config
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	registerer     prometheus.Registerer

	tracer  trace.Tracer
	metrics *metrics
}

// New returns a Pipeline with DefaultConfig unless WithConfig is given.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:            DefaultConfig(),
		logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := newMetrics(p.registerer)
	if err != nil {
		return nil, err
	}
	p.metrics = m
	p.tracer = p.tracerProvider.Tracer(tracerName)

	return p, nil
}

// Config returns the configuration in use.
func (p *Pipeline) Config() Config { return p.cfg }

// build carries the state of one Build call.
type build struct {
	p        *Pipeline
	in       Inputs
	id       string
	logger   *slog.Logger
	stages   []StageResult
	previous stochastic.Bounds

	lg   *fst.VectorFst
	tm   TransitionModel
	info *contextfst.ILabelInfo
}

// Build runs every stage in order. ctx is only checked between stages.
func (p *Pipeline) Build(ctx context.Context, in Inputs) (res *Result, err error) {
	b := &build{p: p, in: in, id: uuid.NewString()}
	b.logger = p.logger.With(slog.String("build_id", b.id))

	ctx, span := p.tracer.Start(ctx, "GraphBuilder.Build",
		trace.WithAttributes(attribute.String("build_id", b.id)),
	)
	defer span.End()
	defer func() {
		p.metrics.build(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "build failed")
			b.logger.Error("hclg: build failed", slog.String("error", err.Error()))
		}
	}()

	// 1. Preconditions and the baseline.
	if err := in.validate(); err != nil {
		return nil, &StageError{Stage: StageLG, Err: err}
	}
	g, err := stochastic.Measure(in.G, semiring.Log)
	if err != nil {
		return nil, &StageError{Stage: StageLG, Err: fmt.Errorf("%w: measure G: %v", ErrGraphConstruction, err)}
	}
	b.previous = g
	b.logger.Info("hclg: build started",
		slog.Int("g_states", in.G.NumStates()),
		slog.Int("l_states", in.L.NumStates()),
		slog.Float64("bounds_min", g.Min),
		slog.Float64("bounds_max", g.Max),
	)

	// 2. Stages.
	steps := []struct {
		stage Stage
		run   func() (*fst.VectorFst, error)
	}{
		{StageLG, b.stageLG},
		{StageCLG, b.stageCLG},
		{StageHCLGRaw, b.stageHCLGRaw},
		{StageHCLGDetMin, b.stageDetMin},
		{StageHCLGDisambigRemoved, b.stageRemoveDisambig},
		{StageHCLGFinal, b.stageSelfLoops},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: step.stage, Previous: b.previous, Err: err}
		}
		if err := b.run(ctx, step.stage, step.run); err != nil {
			return nil, err
		}
	}

	last := b.stages[len(b.stages)-1]
	span.SetAttributes(
		attribute.Int("states", last.States),
		attribute.Int("arcs", last.Arcs),
	)
	b.logger.Info("hclg: build finished",
		slog.Int("states", last.States),
		slog.Int("arcs", last.Arcs),
		slog.Bool("regressed", last.Regressed),
	)

	return &Result{Graph: last.Fst, Stages: b.stages, ILabelInfo: b.info, BuildID: b.id}, nil
}

// run executes one stage under its own span, measures and checks the
// output, and records it.
func (b *build) run(ctx context.Context, stage Stage, fn func() (*fst.VectorFst, error)) error {
	_, span := b.p.tracer.Start(ctx, "GraphBuilder."+stage.String(),
		trace.WithAttributes(attribute.String("stage", stage.String())),
	)
	defer span.End()
	fail := func(e *StageError) error {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())

		return e
	}

	started := time.Now()
	out, err := fn()
	if err != nil {
		return fail(&StageError{Stage: stage, Previous: b.previous, Err: err})
	}
	bounds, err := stochastic.Measure(out, semiring.Log)
	if err != nil {
		return fail(&StageError{Stage: stage, Previous: b.previous, Err: fmt.Errorf("%w: %w", ErrGraphConstruction, err)})
	}
	res := StageResult{
		Stage:    stage,
		Fst:      out,
		Bounds:   bounds,
		States:   out.NumStates(),
		Arcs:     out.TotalArcs(),
		Duration: time.Since(started),
		Exempt:   stage == StageHCLGFinal,
	}

	// Only the self-loop stage may move the bounds.
	if res.Exempt {
		if !b.previous.Envelope().Contains(bounds, b.p.cfg.FinalStageTolerance) {
			res.Regressed = true
			b.logger.Warn("hclg: final stage moved bounds beyond tolerance",
				slog.String("stage", stage.String()),
				slog.String("bounds", bounds.String()),
				slog.String("previous", b.previous.String()),
				slog.Float64("tolerance", b.p.cfg.FinalStageTolerance),
			)
		}
	} else if err := stochastic.CheckNotWorse(b.previous, bounds, b.p.cfg.Tolerance); err != nil {
		return fail(&StageError{Stage: stage, Bounds: bounds, Measured: true, Previous: b.previous, Err: err})
	}

	span.SetAttributes(
		attribute.Int("states", res.States),
		attribute.Int("arcs", res.Arcs),
		attribute.Float64("bounds_min", bounds.Min),
		attribute.Float64("bounds_max", bounds.Max),
		attribute.Bool("regressed", res.Regressed),
	)
	b.p.metrics.observe(res)
	b.logger.Info("hclg: stage complete",
		slog.String("stage", stage.String()),
		slog.Int("states", res.States),
		slog.Int("arcs", res.Arcs),
		slog.Float64("bounds_min", bounds.Min),
		slog.Float64("bounds_max", bounds.Max),
		slog.Duration("duration", res.Duration),
	)
	b.stages = append(b.stages, res)
	b.previous = bounds

	return nil
}

func (b *build) stageLG() (*fst.VectorFst, error) {
	lg, err := preserve.LeftCompose(b.in.L, b.in.G, b.composeOptions()...)
	if err != nil {
		return nil, err
	}
	lg, err = b.detMin(lg)
	if err != nil {
		return nil, err
	}
	b.lg = lg

	return lg, nil
}

func (b *build) stageCLG() (*fst.VectorFst, error) {
	cp, err := b.contextParams()
	if err != nil {
		return nil, err
	}
	phoneDisambig := b.in.Symbols.Set(disambig.LevelPhone)
	if phoneDisambig == nil {
		return nil, fmt.Errorf("%w: no phone-level disambiguation symbols allocated", ErrGraphConstruction)
	}
	c, err := contextfst.New(cp.N, cp.P, cp.Subsequential, cp.Phones, phoneDisambig.Sorted())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGraphConstruction, err)
	}

	lg := b.lg.Copy()
	if err := contextfst.AddSubsequentialLoop(lg, cp.Subsequential); err != nil {
		return nil, err
	}
	matcher := contextfst.NewMatcher(c)
	opts := append(b.composeOptions(), preserve.WithMatcher(matcher))
	clg, err := preserve.LeftCompose(c, lg, opts...)
	if err != nil {
		return nil, err
	}
	if err := checkContextDeterministic(c); err != nil {
		return nil, err
	}
	stats := matcher.Stats()
	b.logger.Debug("hclg: context expanded",
		slog.Int("context_states", stats.States),
		slog.Int64("queries", stats.Queries),
		slog.Int64("materialized", stats.Materialized),
	)

	b.info = c.ILabelInfo()
	b.in.Symbols.RegisterContext(b.info)

	return b.detMin(clg)
}

func (b *build) stageHCLGRaw() (*fst.VectorFst, error) {
	h, tm, err := b.in.H.BuildH(b.info, b.in.Symbols)
	if err != nil {
		return nil, fmt.Errorf("%w: build H′: %w", ErrGraphConstruction, err)
	}
	if h == nil || tm == nil {
		return nil, fmt.Errorf("%w: H source returned no automaton or transition model", ErrGraphConstruction)
	}
	if err := checkOutputLabelsDistinct(h); err != nil {
		return nil, err
	}
	b.tm = tm

	clg := b.stages[len(b.stages)-1].Fst

	return preserve.LeftCompose(h, clg, b.composeOptions()...)
}

func (b *build) stageDetMin() (*fst.VectorFst, error) {
	return b.detMin(b.stages[len(b.stages)-1].Fst)
}

func (b *build) stageRemoveDisambig() (*fst.VectorFst, error) {
	set := b.in.Symbols.Set(disambig.LevelTransition)
	if set == nil {
		return nil, fmt.Errorf("%w: no transition-level disambiguation symbols allocated", ErrGraphConstruction)
	}
	f := b.stages[len(b.stages)-1].Fst.Copy()
	stripped := disambig.Strip(f, set)
	if err := disambig.AssertAbsent(f, set); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGraphConstruction, err)
	}
	b.logger.Debug("hclg: disambiguation symbols stripped", slog.Int("arcs", stripped))

	if b.p.cfg.LocalEpsRemoval {
		var (
			rep preserve.EpsReport
			err error
		)
		f, rep, err = preserve.LocalEpsilonRemoval(f,
			preserve.WithEpsTolerance(b.p.cfg.Tolerance),
			preserve.WithEpsLogger(b.logger),
		)
		if err != nil {
			return nil, err
		}
		b.logger.Debug("hclg: local epsilon removal",
			slog.Int("merged", rep.Merged),
			slog.Int("rejected_tropical", rep.RejectedTropical),
			slog.Int("rejected_log", rep.RejectedLog),
			slog.Int("epsilons_before", rep.EpsilonsBefore),
			slog.Int("epsilons_after", rep.EpsilonsAfter),
		)
	}

	return preserve.Minimize(f, fst.WithMinimizeDelta(b.p.cfg.Delta))
}

func (b *build) stageSelfLoops() (*fst.VectorFst, error) {
	f := b.stages[len(b.stages)-1].Fst.Copy()
	if err := AddSelfLoops(f, b.tm, b.p.cfg.SelfLoopScale); err != nil {
		return nil, err
	}

	return f, nil
}

func (b *build) detMin(f *fst.VectorFst) (*fst.VectorFst, error) {
	det, err := preserve.Determinize(f, semiring.Log,
		fst.WithDeterminizeDelta(b.p.cfg.Delta),
		fst.WithMaxDeterminizeStates(b.p.cfg.MaxDetStates),
	)
	if err != nil {
		return nil, err
	}

	return preserve.Minimize(det, fst.WithMinimizeDelta(b.p.cfg.Delta))
}

func (b *build) composeOptions() []preserve.ComposeOption {
	return []preserve.ComposeOption{preserve.WithMaxStates(b.p.cfg.MaxComposeStates)}
}

// contextParams fills in the defaults of Inputs.Context.
func (b *build) contextParams() (ContextParams, error) {
	cp := b.in.Context
	if cp.N == 0 {
		cp.N, cp.P = b.p.cfg.Context.N, b.p.cfg.Context.P
	}
	phoneDisambig := b.in.Symbols.Set(disambig.LevelPhone)
	var top fst.Label
	var derived []fst.Label
	seen := make(map[fst.Label]bool)
	for s := 0; s < b.in.L.NumStates(); s++ {
		for _, a := range b.in.L.Arcs(fst.StateID(s)) {
			if a.ILabel > top {
				top = a.ILabel
			}
			if a.ILabel == fst.Epsilon || seen[a.ILabel] || phoneDisambig.Contains(a.ILabel) {
				continue
			}
			seen[a.ILabel] = true
			derived = append(derived, a.ILabel)
		}
	}
	if cp.Subsequential == 0 {
		cp.Subsequential = top + 1
	}
	if len(cp.Phones) == 0 {
		cp.Phones = derived
	}
	if len(cp.Phones) == 0 {
		return ContextParams{}, fmt.Errorf("%w: L has no phones", ErrGraphConstruction)
	}

	return cp, nil
}

// outputDeterminism is implemented by transducers that can verify, over
// what has been expanded so far, that no state repeats an output label.
type outputDeterminism interface {
	CheckOutputDeterministic() error
}

func checkContextDeterministic(c outputDeterminism) error {
	if err := c.CheckOutputDeterministic(); err != nil {
		return fmt.Errorf("%w: C is not output-deterministic: %w", ErrGraphConstruction, err)
	}

	return nil
}

// checkOutputLabelsDistinct requires every state of h to have at most one
// arc per non-epsilon output label.
func checkOutputLabelsDistinct(h *fst.VectorFst) error {
	for s := 0; s < h.NumStates(); s++ {
		seen := make(map[fst.Label]bool)
		for _, a := range h.Arcs(fst.StateID(s)) {
			if a.OLabel == fst.Epsilon {
				continue
			}
			if seen[a.OLabel] {
				return fmt.Errorf("%w: H′ state %d has two arcs with output %d: %w", ErrGraphConstruction, s, a.OLabel, fst.ErrNotDeterministic)
			}
			seen[a.OLabel] = true
		}
	}

	return nil
}

func (in Inputs) validate() error {
	switch {
	case in.G == nil || in.G.Start() == fst.NoState:
		return fmt.Errorf("%w: G is empty", ErrGraphConstruction)
	case in.L == nil || in.L.Start() == fst.NoState:
		return fmt.Errorf("%w: L is empty", ErrGraphConstruction)
	case in.H == nil:
		return fmt.Errorf("%w: no H source", ErrGraphConstruction)
	case in.Symbols == nil:
		return fmt.Errorf("%w: no symbol manager", ErrGraphConstruction)
	case in.Context.N < 0:
		return fmt.Errorf("%w: context width %d", ErrGraphConstruction, in.Context.N)
	}

	return nil
}

// IsRegression reports whether err is a stage error caused by bounds moving
// away from zero.
func IsRegression(err error) bool {
	return errors.Is(err, stochastic.ErrStochasticityRegression)
}
