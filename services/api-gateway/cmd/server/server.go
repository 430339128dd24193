package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/pkg/cache"
	"github.com/murmurhq/murmur-server/pkg/credential"
	"github.com/murmurhq/murmur-server/pkg/observability"
	"github.com/murmurhq/murmur-server/pkg/ratelimit"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/config"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/domain/routing"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/infrastructure/logger"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/infrastructure/metrics"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/infrastructure/upstream"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/interfaces/httpserver"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/interfaces/httpserver/proxy"
)

type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

// Start serves the gateway until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, newObservabilityConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	table, err := routing.Load(cfg.RoutesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load route table")
	}
	if err := checkUpstreams(cfg, table); err != nil {
		log.Fatal().Err(err).Msg("validate route table")
	}

	verifier, err := newVerifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize credential verifier")
	}

	redisCache, err := newRedisCache(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	if redisCache != nil {
		defer redisCache.Close()
	}
	limiter, err := newRateLimitProvider(cfg, redisCache)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize rate limiter")
	}

	dispatcher, err := newDispatcher(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize dispatcher")
	}

	prober := newHealthProber(cfg, log)
	defer prober.Close()

	for name, target := range cfg.Upstreams() {
		log.Info().Str("upstream", name).Str("url", target).Msg("proxying upstream")
	}

	httpServer := httpserver.New(cfg, log, table, verifier, limiter, dispatcher, newReadinessCheck(prober, redisCache))
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func newObservabilityConfig(cfg *config.Config) observability.Config {
	obsCfg := observability.DefaultConfig(cfg.ServiceName)
	obsCfg.Environment = cfg.Environment
	obsCfg.TracingEnabled = cfg.EnableTracing
	obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
	return obsCfg
}

func newVerifier(cfg *config.Config) (*credential.Verifier, error) {
	return credential.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
}

// checkUpstreams fails startup when the route table names an upstream with no URL.
func checkUpstreams(cfg *config.Config, table *routing.Table) error {
	known := cfg.Upstreams()
	for _, name := range table.Upstreams() {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("route table references unknown upstream %q", name)
		}
	}
	return nil
}

// newRedisCache returns nil when REDIS_URL is unset; the limiter then keeps
// counters in process.
func newRedisCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*cache.RedisCache, error) {
	if !cfg.UsesRedis() {
		log.Warn().Msg("REDIS_URL not set, rate limits are per instance")
		return nil, nil
	}
	return cache.NewRedisCache(ctx, cfg.RedisURL, cache.Options{OpTimeout: cfg.CacheOpTimeout}, log)
}

func newRateLimitProvider(cfg *config.Config, redisCache *cache.RedisCache) (ratelimit.Provider, error) {
	if redisCache == nil {
		return ratelimit.NewInMemoryProvider(cfg.RateLimitKeys)
	}
	return ratelimit.NewRedisProvider(redisCache.Client(), "rl:"), nil
}

func newDispatcher(cfg *config.Config, log zerolog.Logger) (*proxy.Dispatcher, error) {
	return proxy.NewDispatcher(cfg.Upstreams(), cfg.UpstreamTimeout, log, metrics.RecordUpstreamError)
}

func newHealthProber(cfg *config.Config, log zerolog.Logger) *upstream.HealthProber {
	return upstream.NewHealthProber(cfg.Upstreams(), cfg.ReadyTimeout, log)
}

func newReadinessCheck(prober *upstream.HealthProber, redisCache *cache.RedisCache) httpserver.ReadinessCheck {
	return func(ctx context.Context) error {
		if redisCache != nil {
			if err := redisCache.HealthCheck(ctx); err != nil {
				return err
			}
		}
		return prober.Check(ctx)
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
