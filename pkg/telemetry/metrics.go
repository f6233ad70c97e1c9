package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics collects Prometheus metrics for resolution runs. A nil *Metrics
// is a valid no-op collector, as is one built with Enabled false.
type Metrics struct {
	config MetricsConfig

	targetsResolved  *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	structuralErrors prometheus.Counter
	runDuration      prometheus.Histogram
	targetDuration   prometheus.Histogram
	activeRuns       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates the metric collectors. With Enabled false it returns a
// no-op instance.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		config:   cfg,
		registry: registry,

		targetsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "targets_resolved_total",
				Help:      "Total targets processed, by outcome status",
			},
			[]string{"status"},
		),
		validationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "validation_errors_total",
				Help:      "Total validation errors reported, by error kind",
			},
			[]string{"kind"},
		),
		structuralErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "structural_errors_total",
				Help:      "Total structural errors aborting a whole run",
			},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of whole resolution runs",
				Buckets:   prometheus.DefBuckets,
			},
		),
		targetDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "target_duration_seconds",
				Help:      "Duration of single-target resolutions",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "active_runs",
				Help:      "Resolution runs currently in flight",
			},
		),
	}

	registry.MustRegister(
		m.targetsResolved,
		m.validationErrors,
		m.structuralErrors,
		m.runDuration,
		m.targetDuration,
		m.activeRuns,
	)
	return m
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// RunStarted marks a run in flight.
func (m *Metrics) RunStarted() {
	if m.enabled() {
		m.activeRuns.Inc()
	}
}

// RunCompleted records the run duration and marks it finished.
func (m *Metrics) RunCompleted(d time.Duration) {
	if m.enabled() {
		m.activeRuns.Dec()
		m.runDuration.Observe(d.Seconds())
	}
}

// RunAborted marks a run finished without recording a duration, for runs
// that die on a structural error before producing a report.
func (m *Metrics) RunAborted() {
	if m.enabled() {
		m.activeRuns.Dec()
	}
}

// TargetResolved records one target outcome.
func (m *Metrics) TargetResolved(status string, d time.Duration) {
	if m.enabled() {
		m.targetsResolved.WithLabelValues(status).Inc()
		m.targetDuration.Observe(d.Seconds())
	}
}

// ValidationError counts one reported validation error.
func (m *Metrics) ValidationError(kind string) {
	if m.enabled() {
		m.validationErrors.WithLabelValues(kind).Inc()
	}
}

// StructuralError counts one run-fatal structural error.
func (m *Metrics) StructuralError() {
	if m.enabled() {
		m.structuralErrors.Inc()
	}
}

// Handler exposes the metrics over HTTP; nil when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer exposes the scrape endpoint in the background. It does
// nothing unless metrics are enabled and a listen address is configured.
func (m *Metrics) StartServer() {
	if !m.enabled() || m.config.ListenAddress == "" {
		return
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// Registry returns the backing Prometheus registry; nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if !m.enabled() {
		return nil
	}
	return m.registry
}
