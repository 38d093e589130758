package observability

import (
	"net/http"
	"time"

	"github.com/aretw0/animgate/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors updated by batch runs and the HTTP API.
type Metrics struct {
	registry *prometheus.Registry

	controllers *prometheus.CounterVec
	changes     prometheus.Counter
	warnings    prometheus.Counter
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
}

// NewMetrics creates and registers every collector, plus the Go runtime ones.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		controllers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animgate_controllers_total",
				Help: "Controllers processed, by outcome status",
			},
			[]string{"status"},
		),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animgate_changes_total",
			Help: "Individual transition edits applied by normalization",
		}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animgate_warnings_total",
			Help: "Warnings recorded by normalization",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "animgate_normalize_duration_seconds",
				Help:    "Time spent loading, normalizing and saving one controller",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"status"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animgate_runs_total",
				Help: "Batch runs, by mode",
			},
			[]string{"mode"},
		),
	}
	m.registry.MustRegister(
		m.controllers, m.changes, m.warnings, m.duration, m.runs,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveOutcome records the result of one controller.
func (m *Metrics) ObserveOutcome(o domain.Outcome, elapsed time.Duration) {
	status := string(o.Status)
	m.controllers.WithLabelValues(status).Inc()
	m.changes.Add(float64(o.ChangedCount))
	m.warnings.Add(float64(o.Warnings))
	m.duration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// ObserveRun records a finished batch run.
func (m *Metrics) ObserveRun(run domain.Run) {
	mode := "apply"
	if run.DryRun {
		mode = "dry_run"
	}
	m.runs.WithLabelValues(mode).Inc()
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
