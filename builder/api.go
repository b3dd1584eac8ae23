// SPDX-License-Identifier: MIT
// Package: hclg/builder
//
// api.go - thin public entry-point for the builder package.
//
// Design contract:
//   - One orchestrator: BuildFst(bopts, cons...). Creates f, resolves cfg, runs cons in order.
//   - Functional options (BuilderOption) resolve into an immutable builderConfig (no global state).
//   - Determinism: same inputs/options and constructor order ⇒ identical automata.
//   - Safety: never panic; return sentinel errors from constructors.

package builder

import (
	"fmt"

	"github.com/katalvlaran/hclg/fst"
)

// Constructor fills an automaton using the resolved builderConfig.
// Constructors MUST:
//   - Validate parameters early and return sentinel errors (no panics).
//   - Emit states and arcs in a stable, documented order.
//   - Refuse a non-empty target (ErrConstructFailed).
type Constructor func(f *fst.VectorFst, cfg builderConfig) error

// BuildFst creates a new automaton, resolves the builder configuration from
// bopts and applies all constructors in order. Any constructor error is
// wrapped with the context "BuildFst: %w" and returned immediately.
//
// Complexity:
//   - Resolving options: O(len(bopts)).
//   - Applying K constructors: Σ cost of each constructor.
func BuildFst(bopts []BuilderOption, cons ...Constructor) (*fst.VectorFst, error) {
	f := fst.NewVectorFst()
	cfg := newBuilderConfig(bopts...)

	for i, fn := range cons {
		// A nil constructor is a programmer error; report it, do not panic.
		if fn == nil {
			return nil, fmt.Errorf("BuildFst: nil constructor at index %d: %w", i, ErrConstructFailed)
		}
		if err := fn(f, cfg); err != nil {
			return nil, fmt.Errorf("BuildFst: %w", err)
		}
	}

	return f, nil
}

// requireEmpty rejects a target that already holds states.
func requireEmpty(method string, f *fst.VectorFst) error {
	if f == nil {
		return fmt.Errorf("%s: nil target: %w", method, ErrConstructFailed)
	}
	if f.NumStates() != 0 {
		return fmt.Errorf("%s: target already has %d states: %w", method, f.NumStates(), ErrConstructFailed)
	}

	return nil
}
