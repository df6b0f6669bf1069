package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the shelfwise service.
type Metrics struct {
	AssistantRequestTotal *prometheus.CounterVec
	AssistantDurationMs   *prometheus.HistogramVec
	ModelCallDurationMs   *prometheus.HistogramVec
	CacheOpTotal          *prometheus.CounterVec
	RateLimitTotal        *prometheus.CounterVec
	InvalidationTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AssistantRequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwise_assistant_request_total",
			Help: "Total assistant queries processed, by interpreted query type and outcome.",
		}, []string{"query_type", "status"}),

		AssistantDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shelfwise_assistant_duration_ms",
			Help:    "End-to-end assistant query duration in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"cache"}),

		ModelCallDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shelfwise_model_call_duration_ms",
			Help:    "Language model call duration in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"operation"}),

		CacheOpTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwise_cache_op_total",
			Help: "Cache operations by kind and outcome (hit, miss, timeout, error, ok).",
		}, []string{"op", "outcome"}),

		RateLimitTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwise_rate_limit_total",
			Help: "Rate limiter decisions.",
		}, []string{"outcome"}),

		InvalidationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwise_invalidation_total",
			Help: "Cache invalidation broadcasts by outcome.",
		}, []string{"outcome"}),
	}
}

// RecordAssistantRequest records a completed assistant query.
func (m *Metrics) RecordAssistantRequest(queryType, status string, durationMs float64, cacheHit bool) {
	m.AssistantRequestTotal.WithLabelValues(queryType, status).Inc()
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.AssistantDurationMs.WithLabelValues(cache).Observe(durationMs)
}

// RecordModelCall records the duration of a single language model call.
func (m *Metrics) RecordModelCall(operation string, durationMs float64) {
	m.ModelCallDurationMs.WithLabelValues(operation).Observe(durationMs)
}

// RecordCacheOp records a cache operation outcome.
func (m *Metrics) RecordCacheOp(op, outcome string) {
	m.CacheOpTotal.WithLabelValues(op, outcome).Inc()
}

// RecordRateLimit records a rate limiter decision.
func (m *Metrics) RecordRateLimit(outcome string) {
	m.RateLimitTotal.WithLabelValues(outcome).Inc()
}

// RecordInvalidation records an invalidation broadcast outcome.
func (m *Metrics) RecordInvalidation(outcome string) {
	m.InvalidationTotal.WithLabelValues(outcome).Inc()
}
