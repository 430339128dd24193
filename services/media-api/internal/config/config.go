package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the media service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"media-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"MEDIA_API_PORT" envDefault:"3003"`
	LogLevel        string        `env:"MEDIA_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Database
	DatabaseURL    string        `env:"MEDIA_DATABASE_URL,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBQueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`

	// Redis backs the rate limiter and the per-post cascade lock
	RedisURL       string        `env:"REDIS_URL,notEmpty"`
	CacheOpTimeout time.Duration `env:"CACHE_OP_TIMEOUT" envDefault:"500ms"`

	// Event bus
	EventBusProvider   string        `env:"EVENT_BUS_PROVIDER" envDefault:"amqp"`
	RabbitMQURL        string        `env:"RABBITMQ_URL"`
	EventExchange      string        `env:"EVENT_EXCHANGE" envDefault:"murmur_events"`
	ConsumerInstanceID string        `env:"CONSUMER_INSTANCE_ID"` // Defaults to a random uuid
	ConsumerWorkers    int           `env:"MEDIA_CONSUMER_CONCURRENCY" envDefault:"8"`
	CascadeLockTTL     time.Duration `env:"MEDIA_CASCADE_LOCK_TTL" envDefault:"30s"`

	// Storage Backend Selection
	StorageBackend string        `env:"MEDIA_STORAGE_BACKEND" envDefault:"s3"` // Options: "s3" or "local"
	StorageTimeout time.Duration `env:"MEDIA_STORAGE_TIMEOUT" envDefault:"30s"`

	// Local Storage Configuration
	LocalStoragePath    string `env:"MEDIA_LOCAL_STORAGE_PATH" envDefault:"./media-data"`
	LocalStorageBaseURL string `env:"MEDIA_LOCAL_STORAGE_BASE_URL"` // e.g. "http://localhost:3003/files"

	// S3 Storage Configuration
	S3Endpoint       string `env:"MEDIA_S3_ENDPOINT"`
	S3PublicEndpoint string `env:"MEDIA_S3_PUBLIC_ENDPOINT"`
	S3Region         string `env:"MEDIA_S3_REGION" envDefault:"us-east-1"`
	S3Bucket         string `env:"MEDIA_S3_BUCKET"`
	S3AccessKeyID    string `env:"MEDIA_S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"MEDIA_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle   bool   `env:"MEDIA_S3_USE_PATH_STYLE" envDefault:"true"`

	// Media Configuration
	MaxMediaBytes       int64    `env:"MEDIA_MAX_BYTES" envDefault:"5242880"`
	AllowedMIMEPrefixes []string `env:"MEDIA_ALLOWED_MIME_PREFIXES" envSeparator:"," envDefault:"image/,video/"`

	// Rate limits: one window for every route, a wider one for uploads
	RateLimitMax          int           `env:"MEDIA_RATE_LIMIT_MAX" envDefault:"10"`
	RateLimitWindow       time.Duration `env:"MEDIA_RATE_LIMIT_WINDOW" envDefault:"1s"`
	UploadRateLimitMax    int           `env:"MEDIA_UPLOAD_RATE_LIMIT_MAX" envDefault:"50"`
	UploadRateLimitWindow time.Duration `env:"MEDIA_UPLOAD_RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	cfg.S3PublicEndpoint = strings.TrimSpace(cfg.S3PublicEndpoint)
	cfg.EventBusProvider = strings.ToLower(strings.TrimSpace(cfg.EventBusProvider))

	if cfg.MaxMediaBytes <= 0 {
		cfg.MaxMediaBytes = 5 * 1024 * 1024
	}
	if cfg.ConsumerWorkers <= 0 {
		return nil, fmt.Errorf("MEDIA_CONSUMER_CONCURRENCY must be positive")
	}
	if cfg.EventBusProvider == "amqp" && strings.TrimSpace(cfg.RabbitMQURL) == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required when EVENT_BUS_PROVIDER is amqp")
	}
	if !cfg.IsLocalStorage() && !cfg.IsS3Storage() {
		return nil, fmt.Errorf("unsupported MEDIA_STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.IsS3Storage() && (cfg.S3Bucket == "" || cfg.S3AccessKeyID == "" || cfg.S3SecretKey == "") {
		return nil, fmt.Errorf("MEDIA_S3_BUCKET and credentials are required for the s3 backend")
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsLocalStorage returns true if local storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "local"
}

// IsS3Storage returns true if S3 storage backend is configured.
func (c *Config) IsS3Storage() bool {
	backend := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	return backend == "" || backend == "s3"
}
