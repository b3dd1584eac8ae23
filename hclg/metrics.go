package hclg

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrRegistrationFailed wraps a collector registration failure.
var ErrRegistrationFailed = errors.New("hclg: metric registration failed")

// metrics holds the pipeline collectors. Without a registerer they still
// work but nobody scrapes them.
type metrics struct {
	duration *prometheus.HistogramVec
	states   *prometheus.GaugeVec
	arcs     *prometheus.GaugeVec
	bounds   *prometheus.GaugeVec
	builds   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hclg_stage_duration_seconds",
			Help:    "Wall time of one pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
		states: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hclg_stage_states",
			Help: "States of the last automaton produced by a stage.",
		}, []string{"stage"}),
		arcs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hclg_stage_arcs",
			Help: "Arcs of the last automaton produced by a stage.",
		}, []string{"stage"}),
		bounds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hclg_stage_bounds",
			Help: "Stochasticity bounds (log domain) of the last automaton produced by a stage.",
		}, []string{"stage", "bound"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hclg_builds_total",
			Help: "Builds by result.",
		}, []string{"result"}),
	}
	if reg == nil {
		return m, nil
	}

	// A second pipeline on the same registry shares the first one's collectors.
	register := func(c prometheus.Collector) (prometheus.Collector, error) {
		err := reg.Register(c)
		if err == nil {
			return c, nil
		}
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	var err error
	if m.duration, err = registerAs(register, m.duration); err != nil {
		return nil, err
	}
	if m.states, err = registerAs(register, m.states); err != nil {
		return nil, err
	}
	if m.arcs, err = registerAs(register, m.arcs); err != nil {
		return nil, err
	}
	if m.bounds, err = registerAs(register, m.bounds); err != nil {
		return nil, err
	}
	if m.builds, err = registerAs(register, m.builds); err != nil {
		return nil, err
	}

	return m, nil
}

func registerAs[T prometheus.Collector](register func(prometheus.Collector) (prometheus.Collector, error), c T) (T, error) {
	got, err := register(c)
	if err != nil {
		return c, err
	}
	typed, ok := got.(T)
	if !ok {
		return c, fmt.Errorf("%w: collector registered with a different type", ErrRegistrationFailed)
	}

	return typed, nil
}

func (m *metrics) observe(r StageResult) {
	stage := r.Stage.String()
	m.duration.WithLabelValues(stage).Observe(r.Duration.Seconds())
	m.states.WithLabelValues(stage).Set(float64(r.States))
	m.arcs.WithLabelValues(stage).Set(float64(r.Arcs))
	m.bounds.WithLabelValues(stage, "min").Set(r.Bounds.Min)
	m.bounds.WithLabelValues(stage, "max").Set(r.Bounds.Max)
}

func (m *metrics) build(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.builds.WithLabelValues(result).Inc()
}
