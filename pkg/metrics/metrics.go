// Package metrics exposes Prometheus instrumentation for the engine:
// ingestion volume, query latency by intent, analytics recomputation, and
// embedding activity. Collectors are registered on the default registry so
// the HTTP server only needs to mount promhttp.Handler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphweave",
		Name:      "documents_ingested_total",
		Help:      "Documents submitted for ingestion, by outcome.",
	}, []string{"outcome"})

	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "graphweave",
		Name:      "ingest_duration_seconds",
		Help:      "Wall time of one document ingestion batch.",
		Buckets:   prometheus.DefBuckets,
	})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "graphweave",
		Name:      "query_duration_seconds",
		Help:      "Wall time of one natural-language query, by matched intent.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"intent"})

	recomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "graphweave",
		Name:      "analytics_recompute_duration_seconds",
		Help:      "Wall time of one analytics snapshot computation.",
		Buckets:   []float64{.005, .025, .1, .5, 1, 5, 30, 120},
	})

	embeddings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "graphweave",
		Name:      "embeddings_computed_total",
		Help:      "Entity embeddings computed (cache misses).",
	})
)

// IncIngested counts one ingestion by outcome: committed, skipped, aborted.
func IncIngested(outcome string) {
	documentsIngested.WithLabelValues(outcome).Inc()
}

// ObserveIngest records the duration of one ingestion batch.
func ObserveIngest(d time.Duration) {
	ingestDuration.Observe(d.Seconds())
}

// ObserveQuery records the duration of one query under its matched intent.
func ObserveQuery(intent string, d time.Duration) {
	queryDuration.WithLabelValues(intent).Observe(d.Seconds())
}

// ObserveRecompute records the duration of one analytics recomputation.
func ObserveRecompute(d time.Duration) {
	recomputeDuration.Observe(d.Seconds())
}

// IncEmbeddings counts one embedding computation.
func IncEmbeddings() {
	embeddings.Inc()
}
