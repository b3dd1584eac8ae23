// Package hclg builds speech-recognition decoding graphs whose degree of
// stochasticity never gets worse from one construction step to the next.
//
//	HCLG = asl(min(rds(det(H′ ∘ min(det(C ∘ min(det(L ∘ G))))))))
//
// Determinization runs in the log semiring, minimization never pushes
// weights, and every stage is measured against the one before it. A
// grammar whose state sums are off by 20% produces a graph that is off by
// exactly as much, not one that was silently renormalized.
//
// Under the hood the module is organized as:
//
//	semiring/     tropical and log weights on float64 costs
//	fst/          mutable automata, composition with matchers, log/tropical
//	              determinization, minimization, pushing, shortest distance
//	stochastic/   per-state sums and (min, max) bounds; regression checks
//	contextfst/   the lazy context transducer C, its matcher and label arena
//	disambig/     disambiguation symbols per alphabet: allocate, mark, strip
//	preserve/     stochasticity-preserving determinize, minimize, compose and
//	              local epsilon removal
//	builder/      toy L, G and H′ constructors and their transition model
//	hclg/         the staged pipeline with config, logging, tracing, metrics
//	cmd/mkhclg/   CLI: build a graph from a YAML recipe
//
// Quick example (see cmd/mkhclg/testdata/cats.yaml):
//
//	go run ./cmd/mkhclg build --recipe cmd/mkhclg/testdata/cats.yaml
package hclg
