// SPDX-License-Identifier: MIT
// Package: hclg/builder
//
// config.go - internal configuration and deterministic defaults.
//
// Design:
//   • builderConfig is the single source of truth for all builder knobs.
//   • newBuilderConfig applies options in-order (later overrides earlier).
//
// Deterministic defaults:
//   • statesPerPhone = DefaultStatesPerPhone (3)
//   • selfLoopProb   = DefaultSelfLoopProb   (0.5)

package builder

// builderConfig aggregates all knobs used by constructors.
// It is passed by VALUE to constructors (immutable to callers).
type builderConfig struct {
	// Emitting states of each context-dependent phone HMM.
	statesPerPhone int
	// Probability of an HMM self-loop; leaving has 1-selfLoopProb.
	selfLoopProb float64
}

// newBuilderConfig constructs a config with deterministic defaults and applies
// all options in order.
// Complexity: O(len(opts)) time, O(1) space.
func newBuilderConfig(opts ...BuilderOption) builderConfig {
	cfg := builderConfig{
		statesPerPhone: DefaultStatesPerPhone,
		selfLoopProb:   DefaultSelfLoopProb,
	}

	// Apply options in the given order; last-wins semantics.
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}
