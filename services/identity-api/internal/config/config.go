package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/mileusna/crontab"
)

// Config holds the environment driven configuration for the identity service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"identity-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"IDENTITY_API_PORT" envDefault:"3001"`
	LogLevel        string        `env:"IDENTITY_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	PIILevel        string        `env:"PII_LEVEL" envDefault:"hashed"`
	PIIHashSalt     string        `env:"PII_HASH_SALT"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Database
	DatabaseURL    string        `env:"IDENTITY_DATABASE_URL,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBQueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`

	// Credentials
	JWTSecret       string        `env:"JWT_SECRET,notEmpty"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"murmur-identity"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"10m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"48h"`
	TokenPurgeCron  string        `env:"TOKEN_PURGE_CRON" envDefault:"0 * * * *"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL")
	}
	if c.TokenPurgeCron != "" {
		ctab := crontab.New()
		defer ctab.Shutdown()
		if err := ctab.AddJob(c.TokenPurgeCron, func() {}); err != nil {
			return fmt.Errorf("invalid TOKEN_PURGE_CRON: %w", err)
		}
	}
	return nil
}

// PIISalt keys hashed log identifiers. Without PII_HASH_SALT it falls back
// to the signing secret so the salt is never a public value.
func (c *Config) PIISalt() string {
	if salt := strings.TrimSpace(c.PIIHashSalt); salt != "" {
		return salt
	}
	return c.JWTSecret
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
