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
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/murmurhq/murmur-server/pkg/database"
	"github.com/murmurhq/murmur-server/pkg/observability"
	"github.com/murmurhq/murmur-server/pkg/telemetry"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/config"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/credential"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/identity"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/crontab"
	migrations "github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/database"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/logger"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/repository/refreshtoken"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/repository/user"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/interfaces/httpserver"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/interfaces/httpserver/handlers"
)

type Application struct {
	httpServer *httpserver.HttpServer
	crontab    *crontab.Crontab
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, crontab *crontab.Crontab, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		crontab:    crontab,
		log:        log,
	}
}

// Start runs the HTTP server and the purge schedule until ctx is cancelled or either fails.
func (a *Application) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.httpServer.Run(gctx) })
	g.Go(func() error { return a.crontab.Run(gctx) })
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

	userRepository := user.NewRepository(db, cfg)
	tokenRepository := refreshtoken.NewRepository(db, cfg)

	authority, err := credential.NewAuthority(cfg, tokenRepository, userRepository, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize credential authority")
	}
	identityService := identity.NewService(userRepository, authority, newSanitizer(cfg), log)

	httpServer := httpserver.New(cfg, log, handlers.NewProvider(identityService, authority, log), newReadinessCheck(db))
	app := NewApplication(httpServer, crontab.NewCrontab(cfg, authority, log), log)

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

func newSanitizer(cfg *config.Config) *telemetry.Sanitizer {
	return telemetry.NewSanitizer(telemetry.PIILevel(cfg.PIILevel), cfg.PIISalt())
}

func newReadinessCheck(db *gorm.DB) httpserver.ReadinessCheck {
	return func(ctx context.Context) error {
		return database.Ping(ctx, db, 2*time.Second)
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
