// SPDX-License-Identifier: MIT
// Package: hclg/builder
//
// errors.go - sentinel errors for the builder package.
//
// Error policy:
//   • Only sentinel variables (package-level) are exposed.
//   • Callers use errors.Is(err, ErrX) to branch on semantics.
//   • Implementations attach context with `%w`.
//   • Constructors never panic; validation panics are confined to
//     option constructor functions (WithX...).

package builder

import (
	"errors"
	"fmt"
)

// ErrEmptyInventory indicates a constructor received nothing to build from
// (no pronunciations, no start words, no context-dependent phones).
// Usage: if errors.Is(err, ErrEmptyInventory) { /* check the recipe */ }.
var ErrEmptyInventory = errors.New("builder: empty inventory")

// ErrInvalidLabel indicates a label that is not positive or is unknown to
// the declared inventory (e.g. a pronunciation using an undeclared phone).
var ErrInvalidLabel = errors.New("builder: invalid label")

// ErrInvalidProbability indicates a probability outside its allowed interval.
var ErrInvalidProbability = errors.New("builder: probability out of range")

// ErrMissingSymbol indicates a disambiguation symbol another constructor
// was expected to allocate first (Lexicon needs Grammar's word #0).
var ErrMissingSymbol = errors.New("builder: required symbol not allocated")

// ErrConstructFailed indicates a construction that cannot proceed, such as
// a nil constructor or a non-empty target automaton.
var ErrConstructFailed = errors.New("builder: construction failed")

// builderErrorf wraps err with the given method context.
// It returns an error of the form "<Method>: <formatted message>: <err>".
func builderErrorf(method string, err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", method, fmt.Sprintf(format, args...), err)
}
