package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Identity-API Metrics
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "identity_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "murmur",
			Subsystem: "identity_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"method", "endpoint"},
	)

	// Register and login outcomes
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "identity_api",
			Name:      "auth_attempts_total",
			Help:      "Register and login attempts by outcome",
		},
		[]string{"operation", "result"},
	)

	TokenRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "identity_api",
			Name:      "token_rotations_total",
			Help:      "Refresh token rotations by outcome",
		},
		[]string{"result"},
	)

	PurgedTokensTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "identity_api",
			Name:      "purged_refresh_tokens_total",
			Help:      "Expired refresh tokens removed by the purge job",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordAuthAttempt records a register or login outcome
func RecordAuthAttempt(operation, result string) {
	AuthAttemptsTotal.WithLabelValues(operation, result).Inc()
}

// RecordRotation records a refresh token rotation outcome
func RecordRotation(result string) {
	TokenRotationsTotal.WithLabelValues(result).Inc()
}

// RecordPurge records tokens removed by the purge job
func RecordPurge(count int64) {
	PurgedTokensTotal.Add(float64(count))
}
