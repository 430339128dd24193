//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/murmurhq/murmur-server/services/identity-api/internal/config"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/credential"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/identity"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/crontab"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/logger"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/repository/refreshtoken"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/repository/user"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/interfaces/httpserver"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/interfaces/httpserver/handlers"
)

var identitySet = wire.NewSet(
	user.NewRepository,
	wire.Bind(new(identity.Repository), new(*user.Repository)),
	wire.Bind(new(credential.IdentityResolver), new(*user.Repository)),
	refreshtoken.NewRepository,
	wire.Bind(new(credential.TokenRepository), new(*refreshtoken.Repository)),
	credential.NewAuthority,
	wire.Bind(new(identity.TokenIssuer), new(*credential.Authority)),
	wire.Bind(new(crontab.TokenPurger), new(*credential.Authority)),
	newSanitizer,
	identity.NewService,
)

// BuildApplication assembles the identity API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		identitySet,
		handlers.NewProvider,
		newReadinessCheck,
		httpserver.New,
		crontab.NewCrontab,
		NewApplication,
	)
	return nil, nil
}
