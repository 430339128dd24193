package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/murmurhq/murmur-server/pkg/middlewares"
	"github.com/murmurhq/murmur-server/services/media-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers      *handlers.Provider
	uploadLimiter gin.HandlerFunc
}

func NewRoutes(provider *handlers.Provider, uploadLimiter gin.HandlerFunc) *Routes {
	return &Routes{handlers: provider, uploadLimiter: uploadLimiter}
}

// Register attaches the media routes under /api/media.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/api/media", middlewares.TrustedIdentity(), middlewares.RequireCaller())
	group.POST("/upload", r.uploadLimiter, r.handlers.Media.Upload)
	group.GET("", r.handlers.Media.List)
	group.GET("/", r.handlers.Media.List)
}
