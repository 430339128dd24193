package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the post service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"post-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"POST_API_PORT" envDefault:"3002"`
	LogLevel        string        `env:"POST_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Database
	DatabaseURL    string        `env:"POST_DATABASE_URL,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBQueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`

	// Cache
	RedisURL       string        `env:"REDIS_URL,notEmpty"`
	CacheTTL       time.Duration `env:"POST_CACHE_TTL" envDefault:"300s"`
	CacheOpTimeout time.Duration `env:"CACHE_OP_TIMEOUT" envDefault:"500ms"`

	// Event bus
	EventBusProvider string        `env:"EVENT_BUS_PROVIDER" envDefault:"amqp"`
	RabbitMQURL      string        `env:"RABBITMQ_URL"`
	EventExchange    string        `env:"EVENT_EXCHANGE" envDefault:"murmur_events"`
	PublishTimeout   time.Duration `env:"EVENT_PUBLISH_TIMEOUT" envDefault:"5s"`

	// Per-IP limit in front of every route
	RateLimitMax    int           `env:"POST_RATE_LIMIT_MAX" envDefault:"10"`
	RateLimitWindow time.Duration `env:"POST_RATE_LIMIT_WINDOW" envDefault:"1s"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.EventBusProvider = strings.ToLower(strings.TrimSpace(cfg.EventBusProvider))
	if cfg.EventBusProvider == "amqp" && strings.TrimSpace(cfg.RabbitMQURL) == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required when EVENT_BUS_PROVIDER is amqp")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("POST_CACHE_TTL must be positive")
	}
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("POST_RATE_LIMIT_MAX and POST_RATE_LIMIT_WINDOW must be positive")
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
