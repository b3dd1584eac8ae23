// Package hclg builds the decoding graph
//
//	HCLG = asl(min(rds(det(H′ ∘ min(det(C ∘ min(det(L ∘ G))))))))
//
// as a linear Pipeline of typed stages. Determinization runs in the log
// semiring and minimization never pushes weights, so the stochasticity
// bounds of G are carried through unchanged: every stage is measured and
// compared with the previous one, and a stage that moves the bounds away
// from zero aborts the build with a *StageError. The last stage, which puts
// the HMM self-loops back with a probability scale, is exempt: it is
// measured, logged and flagged, never refused.
//
// C is the lazy context transducer of package contextfst, composed through
// its matcher so only the context windows reachable from LG are ever
// created. H′ is supplied by the caller through HSource once those windows
// are known.
//
// Each build gets a uuid, one OpenTelemetry span per stage under
// "GraphBuilder.Build", one structured log line per stage and a set of
// Prometheus collectors (see WithRegisterer).
package hclg
