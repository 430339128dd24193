package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("IDENTITY_SERVICE_URL", "http://identity-api:3001/")
	t.Setenv("POST_SERVICE_URL", "http://post-api:3002")
	t.Setenv("MEDIA_SERVICE_URL", "http://media-api:3003")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, int64(6<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 50, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 10, cfg.SensitiveLimitMax)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.False(t, cfg.UsesRedis())
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, "http://identity-api:3001", cfg.Upstreams()[UpstreamIdentity])
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsBadUpstream(t *testing.T) {
	setRequired(t)
	t.Setenv("MEDIA_SERVICE_URL", "media-api:3003")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_TrustedProxies(t *testing.T) {
	setRequired(t)
	t.Setenv("GATEWAY_TRUSTED_PROXIES", "10.0.0.0/8, ,192.0.2.10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, cfg.TrustedProxies)

	t.Setenv("GATEWAY_TRUSTED_PROXIES", "load-balancer")
	_, err = Load()
	assert.Error(t, err)
}
