package routing

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Match(t *testing.T) {
	table := Default()

	tests := []struct {
		path      string
		route     string
		protected bool
		found     bool
	}{
		{"/v1/auth/login", "auth", false, true},
		{"/v1/posts", "posts", true, true},
		{"/v1/posts/pst_123", "posts", true, true},
		{"/v1/media/upload", "media", true, true},
		{"/v1/postsx", "", false, false},
		{"/v1/unknown/thing", "", false, false},
		{"/api/posts", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r, ok := table.Match(tt.path)
			require.Equal(t, tt.found, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.route, r.Name)
			assert.Equal(t, tt.protected, r.Protected)
		})
	}
}

func TestRoute_UpstreamPath(t *testing.T) {
	r, ok := Default().Match("/v1/posts/pst_1")
	require.True(t, ok)
	assert.Equal(t, "/api/posts/pst_1", r.UpstreamPath("/v1/posts/pst_1"))
	assert.Equal(t, "/api/posts", r.UpstreamPath("/v1/posts"))
}

func TestRoute_IsSensitive(t *testing.T) {
	table := Default()

	auth, _ := table.Match("/v1/auth/register")
	assert.True(t, auth.IsSensitive(http.MethodPost, "/v1/auth/register"))
	assert.False(t, auth.IsSensitive(http.MethodPost, "/v1/auth/login"))
	assert.False(t, auth.IsSensitive(http.MethodGet, "/v1/auth/register"))

	posts, _ := table.Match("/v1/posts/create-post")
	assert.True(t, posts.IsSensitive(http.MethodPost, "/v1/posts/create-post"))

	media, _ := table.Match("/v1/media/upload")
	assert.True(t, media.IsSensitive(http.MethodPost, "/v1/media/upload/"))
}

func TestParse_LongestPrefixWins(t *testing.T) {
	table, err := Parse([]byte(`
routes:
  - name: posts
    prefix: /v1/posts
    upstream: post
  - name: drafts
    prefix: /v1/posts/drafts/
    upstream: drafts
`))
	require.NoError(t, err)

	r, ok := table.Match("/v1/posts/drafts/1")
	require.True(t, ok)
	assert.Equal(t, "drafts", r.Name)
	assert.Equal(t, []string{"drafts", "post"}, table.Upstreams())
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":        `routes: []`,
		"missing name": "routes:\n  - prefix: /v1/x\n    upstream: x\n",
		"outside v1":   "routes:\n  - name: x\n    prefix: /x\n    upstream: x\n",
		"duplicate":    "routes:\n  - {name: a, prefix: /v1/a, upstream: a}\n  - {name: b, prefix: /v1/a/, upstream: b}\n",
		"bad rewrite":  "routes:\n  - {name: a, prefix: /v1/a, upstream: a, rewrite: {from: /v2, to: /api}}\n",
		"not yaml":     "routes: [",
		"dot segment":  "routes:\n  - {name: a, prefix: /v1/../a, upstream: a}\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoad_FileOverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routes:\n  - {name: only, prefix: /v1/only, upstream: post}\n"), 0o600))

	table, err := Load(path)
	require.NoError(t, err)
	_, ok := table.Match("/v1/posts")
	assert.False(t, ok)
	_, ok = table.Match("/v1/only/1")
	assert.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	table, err = Load("")
	require.NoError(t, err)
	assert.Len(t, table.Routes(), 3)
}
