package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Post-API Metrics
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "post_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "murmur",
			Subsystem: "post_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	// Cache lookups by key kind (item, list) and result (hit, miss, error)
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "post_api",
			Name:      "cache_lookups_total",
			Help:      "Read-through cache lookups",
		},
		[]string{"kind", "result"},
	)

	CacheInvalidationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "post_api",
			Name:      "cache_invalidation_failures_total",
			Help:      "Cache invalidations that failed and were skipped",
		},
	)

	EventPublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "post_api",
			Name:      "event_publish_failures_total",
			Help:      "Events that could not be published",
		},
		[]string{"topic"},
	)

	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "post_api",
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the per-IP limiter",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordCacheLookup records a cache hit, miss or error
func RecordCacheLookup(kind, result string) {
	CacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

// RecordInvalidationFailure records a skipped invalidation
func RecordInvalidationFailure() {
	CacheInvalidationFailuresTotal.Inc()
}

// RecordPublishFailure records an event that was not published
func RecordPublishFailure(topic string) {
	EventPublishFailuresTotal.WithLabelValues(topic).Inc()
}

// RecordRateLimitRejection records a request rejected by the limiter
func RecordRateLimitRejection() {
	RateLimitRejectionsTotal.Inc()
}
