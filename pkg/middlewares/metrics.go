package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder receives one observation per completed request.
type RequestRecorder func(method, endpoint, status string, durationSec float64)

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware(record RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			// unmatched routes would otherwise explode label cardinality
			endpoint = "unmatched"
		}
		record(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
