package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline Prometheus metrics.
var (
	SourceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Name:      "source_requests_total",
			Help:      "Total number of retrieval source requests",
		},
		[]string{"source", "status"},
	)

	SourceRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rankd",
			Name:      "source_request_duration_seconds",
			Help:      "Retrieval source request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"source"},
	)

	SupplementTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Name:      "supplement_total",
			Help:      "Total number of searches supplemented with web results",
		},
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Name:      "query_cache_total",
			Help:      "Query cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "bypass"
	)

	ContextResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Name:      "context_results_total",
			Help:      "Results included in assistant context by source",
		},
		[]string{"source"}, // "database" / "web"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(SourceRequestsTotal)
	prometheus.MustRegister(SourceRequestDuration)
	prometheus.MustRegister(SupplementTotal)
	prometheus.MustRegister(QueryCacheTotal)
	prometheus.MustRegister(ContextResultsTotal)
	retrievalMetricsRegistered = true
}
