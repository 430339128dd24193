package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Media-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "media_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "murmur",
			Subsystem: "media_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Upload counters
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "media_api",
			Name:      "uploads_total",
			Help:      "Total file uploads",
		},
		[]string{"content_type", "status"},
	)

	// Upload bytes counter
	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "media_api",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded",
		},
		[]string{"content_type"},
	)

	// Storage operations by backend call (upload, delete) and outcome
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "media_api",
			Name:      "storage_operations_total",
			Help:      "Total blob storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "murmur",
			Subsystem: "media_api",
			Name:      "storage_duration_seconds",
			Help:      "Blob storage operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	// Cascade outcomes per media id: deleted, missing, failed, skipped
	CascadeMediaTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "media_api",
			Name:      "cascade_media_total",
			Help:      "Media ids processed by post.deleted cascades",
		},
		[]string{"outcome"},
	)

	CascadeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "murmur",
			Subsystem: "media_api",
			Name:      "cascade_duration_seconds",
			Help:      "Time to process one post.deleted event",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	RateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "murmur",
			Subsystem: "media_api",
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records a file upload
func RecordUpload(contentType, status string, bytes int64) {
	UploadsTotal.WithLabelValues(contentType, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(contentType).Add(float64(bytes))
	}
}

// RecordStorageOperation records a blob storage call
func RecordStorageOperation(operation, status string, durationSec float64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordCascade records the per-id outcomes of one cascade
func RecordCascade(deleted, missing, failed, skipped int, durationSec float64) {
	CascadeMediaTotal.WithLabelValues("deleted").Add(float64(deleted))
	CascadeMediaTotal.WithLabelValues("missing").Add(float64(missing))
	CascadeMediaTotal.WithLabelValues("failed").Add(float64(failed))
	CascadeMediaTotal.WithLabelValues("skipped").Add(float64(skipped))
	CascadeDuration.Observe(durationSec)
}

// RecordRateLimitRejection records a request rejected by limiter
func RecordRateLimitRejection(limiter string) {
	RateLimitRejectionsTotal.WithLabelValues(limiter).Inc()
}
