package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/murmurhq/murmur-server/pkg/cache"
	"github.com/murmurhq/murmur-server/pkg/database"
	"github.com/murmurhq/murmur-server/pkg/eventbus"
	"github.com/murmurhq/murmur-server/pkg/observability"
	"github.com/murmurhq/murmur-server/pkg/ratelimit"
	"github.com/murmurhq/murmur-server/services/media-api/internal/config"
	domain "github.com/murmurhq/murmur-server/services/media-api/internal/domain/media"
	"github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/consumer"
	migrations "github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/database"
	"github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/logger"
	repo "github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/repository/media"
	"github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/storage"
	"github.com/murmurhq/murmur-server/services/media-api/internal/interfaces/httpserver"
	"github.com/murmurhq/murmur-server/services/media-api/internal/interfaces/httpserver/handlers"
)

type Application struct {
	httpServer *httpserver.HttpServer
	consumer   *consumer.PostDeletedConsumer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, consumer *consumer.PostDeletedConsumer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		consumer:   consumer,
		log:        log,
	}
}

// Start runs the HTTP server and the post.deleted consumer until ctx is cancelled or either fails.
func (a *Application) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.httpServer.Run(gctx) })
	g.Go(func() error { return a.consumer.Run(gctx) })
	return g.Wait()
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

	blobStore, err := storage.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	bus, err := newEventBus(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect event bus")
	}
	defer bus.Close()

	mediaService := domain.NewService(cfg, repo.NewRepository(db, cfg), blobStore, redisCache, log)
	httpServer := httpserver.New(cfg, log, handlers.NewProvider(cfg, mediaService, log), newRateLimitProvider(redisCache), newReadinessCheck(db, redisCache, blobStore))
	app := NewApplication(httpServer, consumer.NewPostDeletedConsumer(cfg, bus, mediaService, log), log)

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

// newEventBus gives every process its own exclusive queue, so each replica sees
// every post.deleted event and the cascade lock dedupes the work.
func newEventBus(cfg *config.Config, log zerolog.Logger) (*eventbus.Bus, error) {
	instanceID := cfg.ConsumerInstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	ps, err := eventbus.NewPubSub(eventbus.ProviderConfig{
		Provider:   cfg.EventBusProvider,
		AMQPURL:    cfg.RabbitMQURL,
		Exchange:   cfg.EventExchange,
		InstanceID: instanceID,
	}, eventbus.NewLoggerAdapter(log))
	if err != nil {
		return nil, err
	}
	return eventbus.New(ps, log, eventbus.Options{}), nil
}

func newRateLimitProvider(redisCache *cache.RedisCache) ratelimit.Provider {
	return ratelimit.NewRedisProvider(redisCache.Client(), "rl:media:")
}

func newReadinessCheck(db *gorm.DB, redisCache *cache.RedisCache, blobStore storage.Backend) httpserver.ReadinessCheck {
	return func(ctx context.Context) error {
		if err := database.Ping(ctx, db, 2*time.Second); err != nil {
			return err
		}
		if err := redisCache.HealthCheck(ctx); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return blobStore.Health(ctx)
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
