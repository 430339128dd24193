package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/pkg/telemetry"
)

// Rule describes one limiter layer.
type Rule struct {
	// Name labels the limiter in keys, logs and metrics, e.g. "coarse" or "sensitive".
	Name   string
	Max    int
	Window time.Duration
	// Key derives the counter key for a request. Defaults to the client IP.
	Key func(c *gin.Context) string
	// Redact renders the derived key for log lines. Defaults to a salted
	// hash that only correlates within this process.
	Redact func(key string) string
}

// RejectFunc is called once per rejected request, typically to bump a metric.
type RejectFunc func(c *gin.Context, rule Rule)

// Middleware enforces rule with provider. Errors from the provider let the
// request through and are logged.
func Middleware(provider Provider, rule Rule, log zerolog.Logger, onReject RejectFunc) gin.HandlerFunc {
	keyFn := rule.Key
	if keyFn == nil {
		keyFn = ClientIPKey
	}
	redact := rule.Redact
	if redact == nil {
		redact = telemetry.NewSanitizer(telemetry.PIILevelHashed, telemetry.EphemeralSalt()).IP
	}
	log = log.With().Str("component", "rate-limit").Str("limiter", rule.Name).Logger()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		client := keyFn(c)
		key := rule.Name + ":" + client
		allowed, count, resetAt, err := provider.CheckAndIncrement(c.Request.Context(), key, rule.Window, rule.Max)
		if err != nil {
			log.Error().Err(err).Str("client", redact(client)).Msg("failed to check rate limit")
			c.Next()
			return
		}

		remaining := rule.Max - count
		if remaining < 0 {
			remaining = 0
		}
		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rule.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			log.Warn().Str("client", redact(client)).Int("count", count).Msg("rate limit exceeded")
			if onReject != nil {
				onReject(c, rule)
			}
			platformerrors.WriteRateLimited(c, "Too many requests")
			return
		}

		c.Next()
	}
}

// ClientIPKey keys on the normalized client address.
func ClientIPKey(c *gin.Context) string {
	raw := c.ClientIP()
	if ip := net.ParseIP(raw); ip != nil {
		return ip.String()
	}
	if raw == "" {
		return "anonymous"
	}
	return raw
}
