package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway Metrics
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "murmur",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	RateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "gateway",
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by a limiter",
		},
		[]string{"limiter"},
	)

	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "gateway",
			Name:      "auth_failures_total",
			Help:      "Protected route requests rejected at the gateway",
		},
		[]string{"reason"},
	)

	UpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "gateway",
			Name:      "upstream_errors_total",
			Help:      "Upstream transport failures",
		},
		[]string{"upstream"},
	)

	PerimeterRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "gateway",
			Name:      "perimeter_rejections_total",
			Help:      "Requests rejected before routing",
		},
		[]string{"reason"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordRateLimitRejection records a rejection by the coarse or sensitive limiter
func RecordRateLimitRejection(limiter string) {
	RateLimitRejectionsTotal.WithLabelValues(limiter).Inc()
}

// RecordAuthFailure records a missing, expired or invalid credential
func RecordAuthFailure(reason string) {
	AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordUpstreamError records a failed round trip to an upstream
func RecordUpstreamError(upstream string) {
	UpstreamErrorsTotal.WithLabelValues(upstream).Inc()
}

// RecordPerimeterRejection records a request rejected by the perimeter checks
func RecordPerimeterRejection(reason string) {
	PerimeterRejectionsTotal.WithLabelValues(reason).Inc()
}
