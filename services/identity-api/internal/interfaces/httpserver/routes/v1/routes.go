package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/murmurhq/murmur-server/services/identity-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches the auth routes under /api/auth.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/api/auth")
	group.POST("/register", r.handlers.Auth.Register)
	group.POST("/login", r.handlers.Auth.Login)
	group.POST("/refresh-token", r.handlers.Auth.RefreshToken)
	group.POST("/logout", r.handlers.Auth.Logout)
}
