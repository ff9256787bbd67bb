package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for pipeline runs and caches.
type Metrics struct {
	PipelineRuns        *prometheus.CounterVec // labels: outcome={success,error}
	CacheLookups        *prometheus.CounterVec // labels: layer={boundaries,workbook,sheet,store}, result={hit,miss}
	Events              *prometheus.CounterVec // labels: label
	UnmatchedUnits      prometheus.Gauge
	RunDuration         prometheus.Histogram
	SourceInvalidations prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRuns,
		m.CacheLookups,
		m.Events,
		m.UnmatchedUnits,
		m.RunDuration,
		m.SourceInvalidations,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatemap",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatemap",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by layer and result.",
		}, []string{"layer", "result"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatemap",
			Name:      "events_total",
			Help:      "Classified units by event label.",
		}, []string{"label"}),
		UnmatchedUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climatemap",
			Name:      "unmatched_units",
			Help:      "Boundary units without monthly data in the last run.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climatemap",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		SourceInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climatemap",
			Name:      "source_invalidations_total",
			Help:      "Cache invalidations caused by changed source files.",
		}),
	}
}
