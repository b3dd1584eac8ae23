package hclg

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Pipeline. Options panic on nil arguments; New reports
// invalid configuration values as errors.
type Option func(*Pipeline)

// WithLogger sets the logger. Default slog.Default().
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("hclg: WithLogger(nil)")
	}

	return func(p *Pipeline) { p.logger = l }
}

// WithTracerProvider sets where stage spans go. Default otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	if tp == nil {
		panic("hclg: WithTracerProvider(nil)")
	}

	return func(p *Pipeline) { p.tracerProvider = tp }
}

// WithRegisterer registers the pipeline collectors on reg. Without it the
// collectors are kept unregistered.
func WithRegisterer(reg prometheus.Registerer) Option {
	if reg == nil {
		panic("hclg: WithRegisterer(nil)")
	}

	return func(p *Pipeline) { p.registerer = reg }
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) { p.cfg = cfg }
}
