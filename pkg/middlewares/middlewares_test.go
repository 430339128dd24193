package middlewares

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurhq/murmur-server/pkg/credential"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())

	var fromCtx, fromGin string
	r.GET("/x", func(c *gin.Context) {
		fromCtx = platformerrors.RequestIDFromContext(c.Request.Context())
		fromGin = RequestIDFromContext(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	id := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)
	assert.Equal(t, id, fromCtx)
	assert.Equal(t, id, fromGin)
}

func TestRequestID_KeepsInbound(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	var mu sync.Mutex
	var got []string
	record := func(method, endpoint, status string, _ float64) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, method+" "+endpoint+" "+status)
	}

	r := gin.New()
	r.Use(MetricsMiddleware(record))
	r.GET("/posts/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/posts/pst_1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, []string{"GET /posts/:id 404", "GET unmatched 404"}, got)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := httptest.NewRequest(http.MethodOptions, "/x", nil)
	preflight.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/x", nil)
	other.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, other)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTrustedIdentity(t *testing.T) {
	r := gin.New()
	r.Use(TrustedIdentity())
	r.GET("/open", func(c *gin.Context) {
		userID, _ := CallerFromContext(c.Request.Context())
		c.String(http.StatusOK, userID)
	})
	r.GET("/closed", RequireCaller(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set(credential.TrustedUserHeader, "usr_1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "usr_1", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/closed", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
