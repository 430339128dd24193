//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/murmurhq/murmur-server/pkg/credential"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/config"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/domain/routing"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/infrastructure/logger"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/interfaces/httpserver"
	gatewaymw "github.com/murmurhq/murmur-server/services/api-gateway/internal/interfaces/httpserver/middlewares"
)

func provideRouteTable(cfg *config.Config) (*routing.Table, error) {
	table, err := routing.Load(cfg.RoutesFile)
	if err != nil {
		return nil, err
	}
	return table, checkUpstreams(cfg, table)
}

var gatewaySet = wire.NewSet(
	provideRouteTable,
	newVerifier,
	wire.Bind(new(gatewaymw.CredentialVerifier), new(*credential.Verifier)),
	newRedisCache,
	newRateLimitProvider,
	newDispatcher,
	newHealthProber,
	newReadinessCheck,
)

// BuildApplication assembles the gateway with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		gatewaySet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}
