package preserve

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
	"github.com/katalvlaran/hclg/stochastic"
)

// Sentinel errors.
var (
	// ErrSemiringMismatch indicates an operation invoked with a semiring that
	// cannot preserve stochasticity.
	ErrSemiringMismatch = errors.New("preserve: semiring mismatch")

	// ErrLeftCondition indicates a left operand that violates one of the
	// sufficient conditions of left composition.
	ErrLeftCondition = errors.New("preserve: left composition condition violated")
)

// Determinize determinizes f in the log semiring. Any other k is refused
// with ErrSemiringMismatch; determinization failures surface as
// fst.ErrNonDeterminizable.
func Determinize(f fst.Fst, k semiring.Kind, opts ...fst.DeterminizeOption) (*fst.VectorFst, error) {
	if k != semiring.Log {
		return nil, fmt.Errorf("%w: determinize requires %v, got %v", ErrSemiringMismatch, semiring.Log, k)
	}
	out, err := fst.Determinize(f, semiring.Log, opts...)
	if err != nil {
		return nil, fmt.Errorf("determinize: %w", err)
	}

	return out, nil
}

// Minimize minimizes f with weight pushing disabled, whatever opts say.
// Labels, weights and final weights are encoded into the acceptor alphabet,
// so no weight moves.
func Minimize(f *fst.VectorFst, opts ...fst.MinimizeOption) (*fst.VectorFst, error) {
	all := append(append([]fst.MinimizeOption(nil), opts...), fst.WithoutPushing())
	out, err := fst.Minimize(f, all...)
	if err != nil {
		return nil, fmt.Errorf("minimize: %w", err)
	}

	return out, nil
}

// ComposeOptions configures LeftCompose.
type ComposeOptions struct {
	// Verify measures b before and the result after and refuses regressions.
	Verify bool

	// Tolerance is the slack allowed by verification.
	Tolerance float64

	// Matcher, if non-nil, answers a's arcs by output label.
	Matcher fst.OutputMatcher

	// MaxStates bounds the result (0 = no limit).
	MaxStates int
}

// ComposeOption mutates ComposeOptions.
type ComposeOption func(*ComposeOptions)

// WithVerification enables the before/after bounds check. Panics on tol < 0.
func WithVerification(tol float64) ComposeOption {
	if tol < 0 {
		panic("preserve: WithVerification(tol<0)")
	}

	return func(o *ComposeOptions) { o.Verify, o.Tolerance = true, tol }
}

// WithMatcher makes composition query a through m.
func WithMatcher(m fst.OutputMatcher) ComposeOption {
	return func(o *ComposeOptions) { o.Matcher = m }
}

// WithMaxStates bounds the composition. Panics on n < 0.
func WithMaxStates(n int) ComposeOption {
	if n < 0 {
		panic("preserve: WithMaxStates(n<0)")
	}

	return func(o *ComposeOptions) { o.MaxStates = n }
}

// LeftCompose returns a ∘ b, trimmed. When a meets the left-composition
// conditions (see CheckLeftConditions) the result is as stochastic as b; the
// conditions are structural and are not re-verified here, but
// WithVerification measures the effect directly.
func LeftCompose(a fst.Fst, b fst.ExpandedFst, opts ...ComposeOption) (*fst.VectorFst, error) {
	var cfg ComposeOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	var before stochastic.Bounds
	if cfg.Verify {
		var err error
		if before, err = stochastic.Measure(b, semiring.Log); err != nil {
			return nil, fmt.Errorf("left compose: measure right operand: %w", err)
		}
	}

	var copts []fst.ComposeOption
	if cfg.Matcher != nil {
		copts = append(copts, fst.WithLeftMatcher(cfg.Matcher))
	}
	if cfg.MaxStates > 0 {
		copts = append(copts, fst.WithMaxComposeStates(cfg.MaxStates))
	}
	out, err := fst.Compose(a, b, copts...)
	if err != nil {
		return nil, fmt.Errorf("left compose: %w", err)
	}

	if cfg.Verify {
		after, err := stochastic.Measure(out, semiring.Log)
		if err != nil {
			return nil, fmt.Errorf("left compose: measure result: %w", err)
		}
		if err = stochastic.CheckNotWorse(before, after, cfg.Tolerance); err != nil {
			return nil, fmt.Errorf("left compose: %w", err)
		}
	}

	return out, nil
}

// CheckLeftConditions verifies the sufficient conditions for a to preserve
// stochasticity on the left, for each sequence in seqs drawn from the right
// operand's input language:
//
//  1. a can produce the sequence on its output side;
//  2. a composed with the unweighted linear acceptor of the sequence is
//     stochastic within tol.
//
// It is a diagnostic: it returns the first violation wrapped in
// ErrLeftCondition, or nil.
func CheckLeftConditions(a fst.Fst, seqs [][]fst.Label, tol float64) error {
	for i, seq := range seqs {
		restricted, err := fst.Compose(a, fst.Linear(seq))
		if err != nil {
			return fmt.Errorf("sequence %d: %w", i, err)
		}
		if restricted.Start() == fst.NoState {
			return fmt.Errorf("%w: sequence %d %v is not produced", ErrLeftCondition, i, seq)
		}
		b, err := stochastic.Measure(restricted, semiring.Log)
		if err != nil {
			return fmt.Errorf("sequence %d: %w", i, err)
		}
		if !b.IsStochastic(tol) {
			return fmt.Errorf("%w: sequence %d %v gives bounds %v", ErrLeftCondition, i, seq, b)
		}
	}

	return nil
}
