package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "airq"

// Metrics holds the Prometheus counters, histograms, and gauges for pipeline runs.
type Metrics struct {
	RunsTotal           *prometheus.CounterVec // labels: network, outcome={success,config_error,input_error,io_error}
	ObservationsWritten *prometheus.CounterVec // labels: network
	Warnings            *prometheus.CounterVec // labels: network, kind
	RunDuration         *prometheus.HistogramVec
	PipelineRunning     prometheus.Gauge

	// Exporter metrics.
	ExportsTotal *prometheus.CounterVec // labels: exporter, outcome={success,error}

	// Station directory cache.
	StationCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.ObservationsWritten,
		m.Warnings,
		m.RunDuration,
		m.PipelineRunning,
		m.ExportsTotal,
		m.StationCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by network and outcome.",
		}, []string{"network", "outcome"}),
		ObservationsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_written_total",
			Help:      "Canonical observations written to output files.",
		}, []string{"network"}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Non-fatal data-quality warnings by kind.",
		}, []string{"network", "kind"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete parse-to-write pipeline run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"network"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while the scheduler is active, 0 when shut down.",
		}),
		ExportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Canonical table exports by exporter and outcome.",
		}, []string{"exporter", "outcome"}),
		StationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_cache_total",
			Help:      "Station directory cache lookups by result.",
		}, []string{"result"}),
	}
}
