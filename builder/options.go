// SPDX-License-Identifier: MIT
// Package: hclg/builder
//
// options.go - functional options for the builder package.
//
// Contract:
//   • Options are functional (type BuilderOption func(*builderConfig)).
//   • Option constructors VALIDATE and PANIC on meaningless inputs.
//     Constructors themselves never panic.
//   • No hidden globals; everything flows through builderConfig.

package builder

// BuilderOption customizes the behavior of a constructor by mutating a
// builderConfig instance before construction begins.
// Complexity: applying N options costs O(N) time, O(1) space.
type BuilderOption func(*builderConfig)

// WithStatesPerPhone sets the number of emitting states per HMM.
// Panics if n < MinStatesPerPhone.
func WithStatesPerPhone(n int) BuilderOption {
	if n < MinStatesPerPhone {
		panic("builder: WithStatesPerPhone(n<1)")
	}
	return func(c *builderConfig) {
		c.statesPerPhone = n
	}
}

// WithSelfLoopProb sets the HMM self-loop probability.
// Panics unless 0 < p < 1: a state must be both enterable and leavable.
func WithSelfLoopProb(p float64) BuilderOption {
	if p <= MinProbability || p >= MaxProbability {
		panic("builder: WithSelfLoopProb(p∉(0,1))")
	}
	return func(c *builderConfig) {
		c.selfLoopProb = p
	}
}
