package ratelimit

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProvider struct{}

func (failingProvider) CheckAndIncrement(context.Context, string, time.Duration, int) (bool, int, time.Time, error) {
	return false, 0, time.Time{}, errors.New("redis: connection refused")
}

func newRouter(provider Provider, rule Rule, onReject RejectFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(provider, rule, zerolog.Nop(), onReject))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func send(r http.Handler, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":5555"
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware_NPlusOneRejectsExactlyOnce(t *testing.T) {
	p, err := NewInMemoryProvider(100)
	require.NoError(t, err)
	clock := time.Now()
	p.now = func() time.Time { return clock }

	rejections := 0
	r := newRouter(p, Rule{Name: "coarse", Max: 5, Window: time.Minute}, func(*gin.Context, Rule) { rejections++ })

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		codes = append(codes, send(r, "10.1.1.1").Code)
	}
	assert.Equal(t, []int{200, 200, 200, 200, 200, 429}, codes)
	assert.Equal(t, 1, rejections)

	clock = clock.Add(time.Minute)
	assert.Equal(t, http.StatusOK, send(r, "10.1.1.1").Code)
}

func TestMiddleware_Headers(t *testing.T) {
	p, err := NewInMemoryProvider(100)
	require.NoError(t, err)
	r := newRouter(p, Rule{Name: "coarse", Max: 1, Window: time.Minute}, nil)

	w := send(r, "10.1.1.2")
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	w = send(r, "10.1.1.2")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Too many requests")
}

func TestMiddleware_FailsOpen(t *testing.T) {
	r := newRouter(failingProvider{}, Rule{Name: "coarse", Max: 1, Window: time.Minute}, nil)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send(r, "10.1.1.3").Code)
	}
}

func TestMiddleware_CustomKey(t *testing.T) {
	p, err := NewInMemoryProvider(100)
	require.NoError(t, err)
	rule := Rule{
		Name:   "sensitive",
		Max:    1,
		Window: time.Minute,
		Key:    func(c *gin.Context) string { return "shared" },
	}
	r := newRouter(p, rule, nil)

	assert.Equal(t, http.StatusOK, send(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(r, "10.0.0.2").Code)
}

func TestMiddleware_LogsRedactedClient(t *testing.T) {
	p, err := NewInMemoryProvider(100)
	require.NoError(t, err)

	var buf bytes.Buffer
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(p, Rule{Name: "coarse", Max: 1, Window: time.Minute}, zerolog.New(&buf), nil))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	send(r, "192.0.2.44")
	require.Equal(t, http.StatusTooManyRequests, send(r, "192.0.2.44").Code)

	assert.Contains(t, buf.String(), "rate limit exceeded")
	assert.Contains(t, buf.String(), `"client":"ip:`)
	assert.NotContains(t, buf.String(), "192.0.2.44")
}
