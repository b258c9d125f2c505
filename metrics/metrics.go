package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors for ingestion and retrieval.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	DocumentsIngestedTotal  *prometheus.CounterVec
	ChunksStoredTotal       prometheus.Counter
	IngestDuration          prometheus.Histogram
	RoutesTotal             *prometheus.CounterVec
	RouteDuration           *prometheus.HistogramVec
	CitationResolutionTotal *prometheus.CounterVec
	EmbeddingRequestsTotal  *prometheus.CounterVec
	SkippedCollectionsTotal prometheus.Counter
}

// New creates and registers the collectors once per process.
//
// Metrics:
//   - legalrag_documents_ingested_total{status} - processed, skipped, failed
//   - legalrag_chunks_stored_total - chunks written to the vector store
//   - legalrag_ingest_duration_seconds - per-document ingest latency
//   - legalrag_routes_total{path} - case_number, entity, semantic, ensemble
//   - legalrag_route_duration_seconds{path}
//   - legalrag_citation_resolutions_total{result} - exact, similarity, not_found, cached
//   - legalrag_embedding_requests_total{status} - success, error
//   - legalrag_skipped_collections_total - missing or unreachable collections
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			DocumentsIngestedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "legalrag",
					Name:      "documents_ingested_total",
					Help:      "Total number of documents seen by ingestion, by outcome",
				},
				[]string{"status"},
			),
			ChunksStoredTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "legalrag",
					Name:      "chunks_stored_total",
					Help:      "Total number of chunks written to the vector store",
				},
			),
			IngestDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "legalrag",
					Name:      "ingest_duration_seconds",
					Help:      "Duration of single-document ingestion in seconds",
					Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
				},
			),
			RoutesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "legalrag",
					Name:      "routes_total",
					Help:      "Total number of routed queries by path",
				},
				[]string{"path"},
			),
			RouteDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "legalrag",
					Name:      "route_duration_seconds",
					Help:      "Duration of query routing in seconds",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"path"},
			),
			CitationResolutionTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "legalrag",
					Name:      "citation_resolutions_total",
					Help:      "Total number of citation resolutions by result",
				},
				[]string{"result"},
			),
			EmbeddingRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "legalrag",
					Name:      "embedding_requests_total",
					Help:      "Total number of embedding API requests by status",
				},
				[]string{"status"},
			),
			SkippedCollectionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "legalrag",
					Name:      "skipped_collections_total",
					Help:      "Total number of missing or unreachable collections skipped during search",
				},
			),
		}
	})
	return globalMetrics
}

// RecordDocument records one ingestion outcome
func (m *Metrics) RecordDocument(status string, chunks int, seconds float64) {
	if m == nil {
		return
	}
	m.DocumentsIngestedTotal.WithLabelValues(status).Inc()
	if chunks > 0 {
		m.ChunksStoredTotal.Add(float64(chunks))
	}
	if seconds > 0 {
		m.IngestDuration.Observe(seconds)
	}
}

// RecordRoute records which router path answered a query
func (m *Metrics) RecordRoute(path string, seconds float64) {
	if m == nil {
		return
	}
	m.RoutesTotal.WithLabelValues(path).Inc()
	m.RouteDuration.WithLabelValues(path).Observe(seconds)
}

// RecordCitation records a citation resolution result
func (m *Metrics) RecordCitation(result string) {
	if m == nil {
		return
	}
	m.CitationResolutionTotal.WithLabelValues(result).Inc()
}

// RecordEmbedding records an embedding request outcome
func (m *Metrics) RecordEmbedding(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.EmbeddingRequestsTotal.WithLabelValues(status).Inc()
}

// RecordSkippedCollection counts a collection skipped during search
func (m *Metrics) RecordSkippedCollection() {
	if m == nil {
		return
	}
	m.SkippedCollectionsTotal.Inc()
}
