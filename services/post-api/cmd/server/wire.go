//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/murmurhq/murmur-server/pkg/cache"
	"github.com/murmurhq/murmur-server/pkg/eventbus"
	"github.com/murmurhq/murmur-server/services/post-api/internal/config"
	"github.com/murmurhq/murmur-server/services/post-api/internal/domain/post"
	"github.com/murmurhq/murmur-server/services/post-api/internal/infrastructure/logger"
	postrepo "github.com/murmurhq/murmur-server/services/post-api/internal/infrastructure/repository/post"
	"github.com/murmurhq/murmur-server/services/post-api/internal/interfaces/httpserver"
	"github.com/murmurhq/murmur-server/services/post-api/internal/interfaces/httpserver/handlers"
)

var postSet = wire.NewSet(
	postrepo.NewRepository,
	wire.Bind(new(post.Repository), new(*postrepo.Repository)),
	newRedisCache,
	wire.Bind(new(post.Cache), new(*cache.RedisCache)),
	newEventBus,
	wire.Bind(new(post.Publisher), new(*eventbus.Bus)),
	post.NewService,
)

// BuildApplication assembles the post API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		postSet,
		handlers.NewProvider,
		newRateLimitProvider,
		newReadinessCheck,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}
