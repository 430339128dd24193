package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestHealthProber_AllHealthy(t *testing.T) {
	prober := NewHealthProber(map[string]string{
		"identity": newUpstream(t, http.StatusOK),
		"post":     newUpstream(t, http.StatusOK),
	}, time.Second, zerolog.Nop())
	t.Cleanup(func() { _ = prober.Close() })

	assert.NoError(t, prober.Check(context.Background()))
}

func TestHealthProber_ReportsUnhealthyUpstreams(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	deadURL := closed.URL
	closed.Close()

	prober := NewHealthProber(map[string]string{
		"identity": newUpstream(t, http.StatusOK),
		"post":     newUpstream(t, http.StatusServiceUnavailable),
		"media":    deadURL,
	}, time.Second, zerolog.Nop())
	t.Cleanup(func() { _ = prober.Close() })

	err := prober.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post: status 503")
	assert.Contains(t, err.Error(), "media:")
	assert.NotContains(t, err.Error(), "identity")
}
