package hclg

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/hclg/stochastic"
)

var (
	// ErrGraphConstruction indicates a stage precondition failed: a missing
	// or empty input, an H′ that is not output-deterministic, or a
	// disambiguation symbol that survived removal.
	ErrGraphConstruction = errors.New("hclg: graph construction failed")

	// ErrInvalidConfig indicates a configuration value outside its domain.
	ErrInvalidConfig = errors.New("hclg: invalid configuration")
)

// StageError reports the stage at which Build aborted. Err carries the
// underlying sentinel (ErrGraphConstruction, stochastic.ErrStochasticityRegression,
// preserve.ErrSemiringMismatch, fst.ErrNonDeterminizable, ...).
type StageError struct {
	Stage Stage

	// Bounds are the bounds of the failed stage's output, if it got that far.
	Bounds   stochastic.Bounds
	Measured bool

	// Previous are the bounds the stage was checked against.
	Previous stochastic.Bounds

	Err error
}

// Error implements error.
func (e *StageError) Error() string {
	if e.Measured {
		return fmt.Sprintf("hclg: stage %s: %v (bounds %s, previous %s)", e.Stage, e.Err, e.Bounds, e.Previous)
	}

	return fmt.Sprintf("hclg: stage %s: %v (previous %s)", e.Stage, e.Err, e.Previous)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }
