// Package metrics defines Prometheus metrics for the search subsystem.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intelliemail_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelliemail_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelliemail_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelliemail_searches_total",
			Help: "Total search requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intelliemail_search_duration_seconds",
			Help:    "End-to-end hybrid search duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SemanticDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intelliemail_semantic_degraded_total",
			Help: "Searches that fell back to lexical-only after a semantic failure or timeout",
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelliemail_embedding_requests_total",
			Help: "Embedding backend calls by backend and status",
		},
		[]string{"backend", "status"},
	)

	EmbeddingFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intelliemail_embedding_fallback_total",
			Help: "Times the provider retried against the fallback backend",
		},
	)

	DimensionReconciledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelliemail_dimension_reconciled_total",
			Help: "Embedding vectors adjusted to the canonical dimensionality, by strategy",
		},
		[]string{"strategy"},
	)

	BackfillItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelliemail_backfill_items_total",
			Help: "Backfill items by entity type and result",
		},
		[]string{"entity_type", "result"},
	)

	BackfillRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelliemail_backfill_runs_total",
			Help: "Backfill runs by outcome (completed or skipped while busy)",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		SearchesTotal, SearchDuration, SemanticDegradedTotal,
		EmbeddingRequestsTotal, EmbeddingFallbackTotal, DimensionReconciledTotal,
		BackfillItemsTotal, BackfillRunsTotal,
	)
}
