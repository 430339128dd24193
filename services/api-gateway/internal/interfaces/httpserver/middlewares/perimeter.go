package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/murmurhq/murmur-server/pkg/platformerrors"
)

// PublicPrefix is the only path space the gateway dispatches.
const PublicPrefix = "/v1/"

var allowedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
}

// RejectFunc observes a perimeter rejection, typically to bump a metric.
type RejectFunc func(reason string)

// Perimeter performs the cheap request checks that run before any limiter or
// credential work. Bodies are capped at maxBody bytes, declared or streamed.
func Perimeter(maxBody int64, onReject RejectFunc) gin.HandlerFunc {
	reject := func(c *gin.Context, status int, errorType platformerrors.ErrorType, reason, message string) {
		if onReject != nil {
			onReject(reason)
		}
		platformerrors.WriteStatus(c, status, errorType, message)
	}

	return func(c *gin.Context) {
		req := c.Request

		if _, ok := allowedMethods[req.Method]; !ok {
			reject(c, http.StatusMethodNotAllowed, platformerrors.ErrorTypeValidation, "method", "Method not allowed")
			return
		}

		path := req.URL.Path
		if strings.Contains(path, "..") {
			reject(c, http.StatusBadRequest, platformerrors.ErrorTypeValidation, "path", "Invalid path")
			return
		}
		if !strings.HasPrefix(path, PublicPrefix) {
			reject(c, http.StatusNotFound, platformerrors.ErrorTypeNotFound, "not_found", "Route not found")
			return
		}

		declared, ok := contentLength(req.Header.Values("Content-Length"))
		if !ok {
			reject(c, http.StatusBadRequest, platformerrors.ErrorTypeValidation, "content_length", "Invalid Content-Length header")
			return
		}
		if declared > maxBody || req.ContentLength > maxBody {
			reject(c, http.StatusRequestEntityTooLarge, platformerrors.ErrorTypePayloadTooLarge, "body_size", "Request body too large")
			return
		}

		if req.Body != nil && req.Body != http.NoBody {
			req.Body = http.MaxBytesReader(c.Writer, req.Body, maxBody)
		}
		c.Next()
	}
}

// contentLength returns the declared length, -1 when absent. Repeated headers
// must agree.
func contentLength(values []string) (int64, bool) {
	if len(values) == 0 {
		return -1, true
	}
	first := strings.TrimSpace(values[0])
	for _, v := range values[1:] {
		if strings.TrimSpace(v) != first {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
