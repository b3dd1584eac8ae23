// SPDX-License-Identifier: MIT
//
// Package semiring defines the two weight algebras used by the graph
// construction pipeline.
//
// Weights are float64 costs: the negated natural logarithm of a probability.
// Both semirings share the same carrier set, Zero (+Inf) and One (0), and the
// same ⊗ (addition of costs). They differ only in ⊕:
//
//   - Tropical: a ⊕ b = min(a, b). Used for shortest-path equivalence.
//   - Log:      a ⊕ b = -log(e^-a + e^-b). Used for stochasticity accounting.
//
// Because the carrier is shared, an automaton never needs converting between
// semirings; an algorithm simply takes a Kind and uses its ⊕.
//
// Errors:
//
//	ErrUnknownKind - ParseKind received an unrecognised name.
package semiring

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownKind indicates ParseKind could not map a name onto a Kind.
var ErrUnknownKind = errors.New("semiring: unknown kind")

// Kind selects the ⊕ operation.
type Kind uint8

const (
	// Tropical takes minima; path weights equal the best path.
	Tropical Kind = iota

	// Log sums probabilities in the log domain.
	Log
)

// Zero is the ⊕ identity and ⊗ annihilator (probability 0).
var Zero = math.Inf(1)

// One is the ⊗ identity (probability 1).
const One = 0.0

// DefaultDelta is the comparison tolerance used for weight equality and
// quantization when callers do not supply their own.
const DefaultDelta = 1.0 / 1024.0

// logPlusCutoff is the cost gap beyond which the smaller term cannot change a
// float64 sum (exp(-36) is below machine epsilon).
const logPlusCutoff = 36.0

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Tropical:
		return "tropical"
	case Log:
		return "log"
	default:
		return fmt.Sprintf("semiring(%d)", uint8(k))
	}
}

// ParseKind maps "tropical" or "log" (case-insensitive) onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tropical", "std", "standard":
		return Tropical, nil
	case "log":
		return Log, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// MarshalText implements encoding.TextMarshaler so a Kind can live in YAML
// configuration.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed

	return nil
}

// Plus returns a ⊕ b.
func (k Kind) Plus(a, b float64) float64 {
	if k == Tropical {
		return math.Min(a, b)
	}

	return logPlus(a, b)
}

// Sum folds Plus over ws, returning Zero for an empty list.
func (k Kind) Sum(ws ...float64) float64 {
	total := Zero
	for _, w := range ws {
		total = k.Plus(total, w)
	}

	return total
}

// Times returns a ⊗ b.
func (k Kind) Times(a, b float64) float64 {
	return Times(a, b)
}

// Times returns a ⊗ b; identical in both semirings.
func Times(a, b float64) float64 {
	if math.IsInf(a, 1) || math.IsInf(b, 1) {
		return Zero
	}

	return a + b
}

// Divide returns a ⊘ b (left division; b must not be Zero).
func Divide(a, b float64) float64 {
	if math.IsInf(a, 1) {
		return Zero
	}
	if math.IsInf(b, 1) {
		return math.NaN()
	}

	return a - b
}

// IsZero reports whether w is the ⊕ identity.
func IsZero(w float64) bool {
	return math.IsInf(w, 1)
}

// IsMember reports whether w is a valid weight (not NaN, not -Inf).
func IsMember(w float64) bool {
	return !math.IsNaN(w) && !math.IsInf(w, -1)
}

// ApproxEqual compares two weights within delta; two Zero weights are equal.
func ApproxEqual(a, b, delta float64) bool {
	if IsZero(a) || IsZero(b) {
		return IsZero(a) && IsZero(b)
	}

	return math.Abs(a-b) <= delta
}

// Quantize rounds w to a multiple of delta so it can be used as a hash key.
// Zero is returned unchanged.
func Quantize(w, delta float64) float64 {
	if IsZero(w) || delta <= 0 {
		return w
	}

	return math.Floor(w/delta+0.5) * delta
}

// logPlus is -log(e^-a + e^-b) computed without overflow. It mirrors the
// thresholded LogAdd used for log-likelihoods, expressed on costs.
func logPlus(a, b float64) float64 {
	if IsZero(a) {
		return b
	}
	if IsZero(b) {
		return a
	}
	if a > b {
		a, b = b, a
	}
	d := b - a
	if d > logPlusCutoff {
		return a
	}

	return a - math.Log1p(math.Exp(-d))
}
