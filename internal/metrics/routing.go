package metrics

import "github.com/prometheus/client_golang/prometheus"

// Routing and embedding Prometheus metrics.
var (
	RoutingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routedex",
			Name:      "routing_requests_total",
			Help:      "Total number of routing requests",
		},
		[]string{"strategy", "route", "status"},
	)

	RoutingDecisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "routedex",
			Name:      "routing_decision_duration_seconds",
			Help:      "Routing decision duration in seconds, collaborator calls included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"strategy"},
	)

	RoutingCostTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routedex",
			Name:      "routing_cost_usd_total",
			Help:      "Accumulated routing cost in USD",
		},
		[]string{"strategy", "basis"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routedex",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "routedex",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routedex",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routedex",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routedex",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routedex",
			Name:      "completion_requests_total",
			Help:      "Total number of completion requests",
		},
		[]string{"tier", "model", "status"},
	)

	CompletionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routedex",
			Name:      "completion_tokens_total",
			Help:      "Total completion tokens consumed",
		},
		[]string{"tier", "model", "type"},
	)
)

var routingMetricsRegistered bool

// RegisterRoutingMetrics registers Prometheus routing metrics. Must be called once from main.
func RegisterRoutingMetrics() {
	if routingMetricsRegistered {
		return
	}
	prometheus.MustRegister(RoutingRequestsTotal)
	prometheus.MustRegister(RoutingDecisionDuration)
	prometheus.MustRegister(RoutingCostTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingErrorsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(CompletionRequestsTotal)
	prometheus.MustRegister(CompletionTokensTotal)
	routingMetricsRegistered = true
}
