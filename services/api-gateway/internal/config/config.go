package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Upstream names referenced by the route table.
const (
	UpstreamIdentity = "identity"
	UpstreamPost     = "post"
	UpstreamMedia    = "media"
)

// Config holds the environment driven configuration for the gateway.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"api-gateway"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"GATEWAY_PORT" envDefault:"3000"`
	LogLevel        string        `env:"GATEWAY_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Credential verification
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"murmur-identity"`

	// Upstreams
	IdentityServiceURL string        `env:"IDENTITY_SERVICE_URL,notEmpty"`
	PostServiceURL     string        `env:"POST_SERVICE_URL,notEmpty"`
	MediaServiceURL    string        `env:"MEDIA_SERVICE_URL,notEmpty"`
	UpstreamTimeout    time.Duration `env:"GATEWAY_UPSTREAM_TIMEOUT" envDefault:"10s"`
	ReadyTimeout       time.Duration `env:"GATEWAY_READY_TIMEOUT" envDefault:"2s"`
	RoutesFile         string        `env:"GATEWAY_ROUTES_FILE" envDefault:""`

	// Perimeter. Forwarding headers are honored only from TrustedProxies;
	// with none configured the client address is the socket peer.
	MaxBodyBytes   int64    `env:"GATEWAY_MAX_BODY_BYTES" envDefault:"6291456"`
	TrustedProxies []string `env:"GATEWAY_TRUSTED_PROXIES" envSeparator:","`

	// Rate limiting. An empty REDIS_URL keeps counters in process.
	RedisURL             string        `env:"REDIS_URL" envDefault:""`
	CacheOpTimeout       time.Duration `env:"CACHE_OP_TIMEOUT" envDefault:"500ms"`
	RateLimitMax         int           `env:"GATEWAY_RATE_LIMIT_MAX" envDefault:"50"`
	RateLimitWindow      time.Duration `env:"GATEWAY_RATE_LIMIT_WINDOW" envDefault:"1m"`
	SensitiveLimitMax    int           `env:"GATEWAY_SENSITIVE_RATE_LIMIT_MAX" envDefault:"10"`
	SensitiveLimitWindow time.Duration `env:"GATEWAY_SENSITIVE_RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitKeys        int           `env:"GATEWAY_RATE_LIMIT_KEYS" envDefault:"10000"`
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
	for name, raw := range c.Upstreams() {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("upstream %q: invalid URL %q", name, raw)
		}
	}
	proxies := c.TrustedProxies[:0]
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if net.ParseIP(raw) == nil {
			if _, _, err := net.ParseCIDR(raw); err != nil {
				return fmt.Errorf("GATEWAY_TRUSTED_PROXIES: invalid address %q", raw)
			}
		}
		proxies = append(proxies, raw)
	}
	c.TrustedProxies = proxies
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("GATEWAY_MAX_BODY_BYTES must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("GATEWAY_UPSTREAM_TIMEOUT must be positive")
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("GATEWAY_RATE_LIMIT_MAX and GATEWAY_RATE_LIMIT_WINDOW must be positive")
	}
	if c.SensitiveLimitMax <= 0 || c.SensitiveLimitWindow <= 0 {
		return fmt.Errorf("GATEWAY_SENSITIVE_RATE_LIMIT_MAX and GATEWAY_SENSITIVE_RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// Upstreams maps route table upstream names to base URLs.
func (c *Config) Upstreams() map[string]string {
	return map[string]string{
		UpstreamIdentity: strings.TrimRight(c.IdentityServiceURL, "/"),
		UpstreamPost:     strings.TrimRight(c.PostServiceURL, "/"),
		UpstreamMedia:    strings.TrimRight(c.MediaServiceURL, "/"),
	}
}

// UsesRedis reports whether rate limit counters are shared through Redis.
func (c *Config) UsesRedis() bool {
	return strings.TrimSpace(c.RedisURL) != ""
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
