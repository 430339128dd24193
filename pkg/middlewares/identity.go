package middlewares

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/murmurhq/murmur-server/pkg/credential"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
)

type callerKey struct{}

// CallerFromContext returns the user id the gateway attached to the request.
func CallerFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(callerKey{}).(string)
	return userID, ok && userID != ""
}

// WithCaller returns ctx carrying userID as the authenticated caller.
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

// TrustedIdentity reads the gateway-set user header into the request context.
// Services behind the gateway do no verification of their own; the gateway strips
// any client-supplied copy of this header.
func TrustedIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(credential.TrustedUserHeader)); userID != "" {
			c.Request = c.Request.WithContext(WithCaller(c.Request.Context(), userID))
		}
		c.Next()
	}
}

// RequireCaller rejects requests that arrived without a gateway identity.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CallerFromContext(c.Request.Context()); !ok {
			platformerrors.WriteUnauthorized(c, "Authentication required! Please login to continue")
			return
		}
		c.Next()
	}
}
