package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/murmurhq/murmur-server/pkg/cache"
	"github.com/murmurhq/murmur-server/pkg/database"
	"github.com/murmurhq/murmur-server/pkg/eventbus"
	"github.com/murmurhq/murmur-server/pkg/observability"
	"github.com/murmurhq/murmur-server/pkg/ratelimit"
	"github.com/murmurhq/murmur-server/services/post-api/internal/config"
	"github.com/murmurhq/murmur-server/services/post-api/internal/domain/post"
	migrations "github.com/murmurhq/murmur-server/services/post-api/internal/infrastructure/database"
	"github.com/murmurhq/murmur-server/services/post-api/internal/infrastructure/logger"
	postrepo "github.com/murmurhq/murmur-server/services/post-api/internal/infrastructure/repository/post"
	"github.com/murmurhq/murmur-server/services/post-api/internal/interfaces/httpserver"
	"github.com/murmurhq/murmur-server/services/post-api/internal/interfaces/httpserver/handlers"
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

// Start runs the HTTP server until ctx is cancelled.
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

	db, err := newGormDB(ctx, newDatabaseConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer database.Close(db)

	redisCache, err := newRedisCache(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer redisCache.Close()

	bus, err := newEventBus(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect event bus")
	}
	defer bus.Close()

	service := post.NewService(cfg, postrepo.NewRepository(db, cfg), redisCache, bus, log)
	httpServer := httpserver.New(cfg, log, handlers.NewProvider(service, log), newRateLimitProvider(redisCache), newReadinessCheck(db, redisCache))
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

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrations.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func newRedisCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*cache.RedisCache, error) {
	return cache.NewRedisCache(ctx, cfg.RedisURL, cache.Options{OpTimeout: cfg.CacheOpTimeout}, log)
}

func newEventBus(cfg *config.Config, log zerolog.Logger) (*eventbus.Bus, error) {
	ps, err := eventbus.NewPubSub(eventbus.ProviderConfig{
		Provider: cfg.EventBusProvider,
		AMQPURL:  cfg.RabbitMQURL,
		Exchange: cfg.EventExchange,
	}, eventbus.NewLoggerAdapter(log))
	if err != nil {
		return nil, err
	}
	return eventbus.New(ps, log, eventbus.Options{PublishTimeout: cfg.PublishTimeout}), nil
}

func newRateLimitProvider(redisCache *cache.RedisCache) ratelimit.Provider {
	return ratelimit.NewRedisProvider(redisCache.Client(), "rl:post:")
}

func newReadinessCheck(db *gorm.DB, redisCache *cache.RedisCache) httpserver.ReadinessCheck {
	return func(ctx context.Context) error {
		if err := database.Ping(ctx, db, 2*time.Second); err != nil {
			return err
		}
		return redisCache.HealthCheck(ctx)
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
