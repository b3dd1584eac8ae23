// Package builder provides validation helpers to enforce parameter contracts
// in the constructors.
//
// Each function returns a sentinel wrapped via builderErrorf when its
// precondition is violated.
package builder

import (
	"github.com/katalvlaran/hclg/fst"
)

// validateLabel ensures l is a real (positive) label and, if known is
// non-nil, one of the declared labels.
// Complexity: O(1) time and space.
func validateLabel(method, what string, l fst.Label, known map[fst.Label]bool) error {
	if l <= fst.Epsilon {
		return builderErrorf(method, ErrInvalidLabel, "%s label must be > 0, got %d", what, l)
	}
	if known != nil && !known[l] {
		return builderErrorf(method, ErrInvalidLabel, "%s label %d is not declared", what, l)
	}

	return nil
}

// validateProbability enforces p ∈ (MinProbability, MaxProbability].
// Complexity: O(1) time and space.
func validateProbability(method, what string, p float64) error {
	if !(p > MinProbability && p <= MaxProbability) {
		return builderErrorf(method, ErrInvalidProbability, "%s must be in (%.1f,%.1f], got %g", what, MinProbability, MaxProbability, p)
	}

	return nil
}

// labelSet indexes labels for validateLabel and returns the largest one.
func labelSet(labels []fst.Label) (map[fst.Label]bool, fst.Label) {
	set := make(map[fst.Label]bool, len(labels))
	var top fst.Label
	for _, l := range labels {
		set[l] = true
		if l > top {
			top = l
		}
	}

	return set, top
}
