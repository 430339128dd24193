package observability

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Config holds tracing settings resolved from each service's env config
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string // development, staging, production
	TracingEnabled bool
	OTLPEndpoint   string
	OTLPHeaders    map[string]string
	SamplingRate   float64 // 0.0 - 1.0

	TraceBatchTimeout time.Duration
	ResourceAttrs     []attribute.KeyValue
}

// DefaultConfig returns sensible defaults
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:       serviceName,
		ServiceVersion:    "unknown",
		Environment:       "development",
		OTLPEndpoint:      "otel-collector:4318",
		SamplingRate:      1.0,
		TraceBatchTimeout: 5 * time.Second,
	}
}
