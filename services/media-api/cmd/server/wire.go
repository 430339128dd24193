//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/murmurhq/murmur-server/pkg/cache"
	"github.com/murmurhq/murmur-server/services/media-api/internal/config"
	domain "github.com/murmurhq/murmur-server/services/media-api/internal/domain/media"
	"github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/consumer"
	"github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/logger"
	repo "github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/repository/media"
	"github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/storage"
	"github.com/murmurhq/murmur-server/services/media-api/internal/interfaces/httpserver"
	"github.com/murmurhq/murmur-server/services/media-api/internal/interfaces/httpserver/handlers"
)

var mediaSet = wire.NewSet(
	repo.NewRepository,
	wire.Bind(new(domain.Repository), new(*repo.Repository)),
	storage.New,
	wire.Bind(new(domain.Storage), new(storage.Backend)),
	newRedisCache,
	wire.Bind(new(domain.Locker), new(*cache.RedisCache)),
	domain.NewService,
)

var consumerSet = wire.NewSet(
	newEventBus,
	wire.Bind(new(consumer.Cascader), new(*domain.Service)),
	consumer.NewPostDeletedConsumer,
)

// BuildApplication assembles the media API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		mediaSet,
		consumerSet,
		handlers.NewProvider,
		newRateLimitProvider,
		newReadinessCheck,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}
