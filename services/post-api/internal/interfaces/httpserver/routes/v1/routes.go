package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/murmurhq/murmur-server/pkg/middlewares"
	"github.com/murmurhq/murmur-server/services/post-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches the post routes under /api/posts. Every route needs the
// gateway-supplied caller.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/api/posts", middlewares.TrustedIdentity(), middlewares.RequireCaller())
	group.POST("/create-post", r.handlers.Post.CreatePost)
	group.GET("", r.handlers.Post.ListPosts)
	group.GET("/", r.handlers.Post.ListPosts)
	group.GET("/:id", r.handlers.Post.GetPost)
	group.DELETE("/:id", r.handlers.Post.DeletePost)
}
