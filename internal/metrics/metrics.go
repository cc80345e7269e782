// Package metrics instruments the ingestion pipeline with Prometheus
// counters and histograms: pages fetched, entries normalized/rejected,
// traces fetched/failed, snapshots sent, and upsert outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the pipeline's metrics container, constructed once per
// process and passed to every stage that needs to record an outcome.
type Metrics struct {
	PagesFetchedTotal     *prometheus.CounterVec
	EntriesNormalized     prometheus.Counter
	EntriesRejectedTotal  *prometheus.CounterVec
	TracesFetchedTotal    *prometheus.CounterVec
	SnapshotsTotal        *prometheus.CounterVec
	UpsertsTotal          *prometheus.CounterVec
	TraceFetchDuration    prometheus.Histogram
	GraphServicesObserved prometheus.Gauge
}

// New registers a fresh Metrics set under namespace against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the
// process-wide default registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PagesFetchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "log_pages_fetched_total",
				Help:      "Total number of log pages fetched, by outcome.",
			},
			[]string{"outcome"}, // ok, error
		),
		EntriesNormalized: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "log_entries_normalized_total",
				Help:      "Total number of log entries successfully normalized.",
			},
		),
		EntriesRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "log_entries_rejected_total",
				Help:      "Total number of log entries rejected during normalization, by reason.",
			},
			[]string{"reason"},
		),
		TracesFetchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "traces_fetched_total",
				Help:      "Total number of trace fetches, by outcome.",
			},
			[]string{"outcome"}, // ok, error
		),
		SnapshotsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_snapshots_total",
				Help:      "Total number of graph snapshots produced, by outcome.",
			},
			[]string{"outcome"}, // sent
		),
		UpsertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_upserts_total",
				Help:      "Total number of graph snapshot upserts, by outcome.",
			},
			[]string{"outcome"}, // ok, error
		),
		TraceFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trace_fetch_duration_seconds",
				Help:      "Duration of individual trace fetches.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		GraphServicesObserved: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_services_observed",
				Help:      "Number of distinct services in the most recent snapshot.",
			},
		),
	}
}

// Handler serves the registry's metrics in the Prometheus exposition
// format.
func Handler() http.Handler {
	return promhttp.Handler()
}
