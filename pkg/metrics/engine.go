package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records durations and outcomes for pricing and load
// planning engine runs.
type EngineMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	warnings *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_run_duration_seconds",
		Help:    "Duration of engine runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"engine"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_run_success",
		Help: "Successful engine runs.",
	}, []string{"engine"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_run_failure",
		Help: "Failed engine runs.",
	}, []string{"engine"})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_run_warnings",
		Help: "Warnings emitted by engine runs.",
	}, []string{"engine"})
	reg.MustRegister(duration, success, failure, warnings)
	return &EngineMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		warnings: warnings,
	}
}

// ObserveDuration records the duration for the named engine.
func (e *EngineMetrics) ObserveDuration(engine string, duration time.Duration) {
	if e == nil || e.duration == nil {
		return
	}
	e.duration.WithLabelValues(normalizeLabel(engine)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named engine.
func (e *EngineMetrics) IncSuccess(engine string) {
	if e == nil || e.success == nil {
		return
	}
	e.success.WithLabelValues(normalizeLabel(engine)).Inc()
}

// IncFailure increments the failure counter for the named engine.
func (e *EngineMetrics) IncFailure(engine string) {
	if e == nil || e.failure == nil {
		return
	}
	e.failure.WithLabelValues(normalizeLabel(engine)).Inc()
}

// AddWarnings adds emitted warning counts for the named engine.
func (e *EngineMetrics) AddWarnings(engine string, count int) {
	if e == nil || e.warnings == nil || count <= 0 {
		return
	}
	e.warnings.WithLabelValues(normalizeLabel(engine)).Add(float64(count))
}

func normalizeLabel(engine string) string {
	if engine == "" {
		return "unknown"
	}
	return engine
}
