package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/pkg/middlewares"
	"github.com/murmurhq/murmur-server/pkg/observability"
	"github.com/murmurhq/murmur-server/pkg/ratelimit"
	"github.com/murmurhq/murmur-server/services/media-api/internal/config"
	"github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/metrics"
	"github.com/murmurhq/murmur-server/services/media-api/internal/interfaces/httpserver/handlers"
	v1 "github.com/murmurhq/murmur-server/services/media-api/internal/interfaces/httpserver/routes/v1"
)

// ReadinessCheck reports whether backing stores are reachable.
type ReadinessCheck func(ctx context.Context) error

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
}

// New constructs the HTTP server with default middleware and routes.
func New(cfg *config.Config, log zerolog.Logger, provider *handlers.Provider, limiter ratelimit.Provider, ready ReadinessCheck) *HttpServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	onReject := func(_ *gin.Context, rule ratelimit.Rule) {
		metrics.RecordRateLimitRejection(rule.Name)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		observability.TracingMiddleware(cfg.ServiceName),
		middlewares.LoggingMiddleware(log),
		middlewares.MetricsMiddleware(metrics.RecordRequest),
		middlewares.CORSMiddleware(cfg.CORSOrigins),
		ratelimit.Middleware(limiter, ratelimit.Rule{
			Name:   "ip",
			Max:    cfg.RateLimitMax,
			Window: cfg.RateLimitWindow,
		}, log, onReject),
	)

	uploadLimiter := ratelimit.Middleware(limiter, ratelimit.Rule{
		Name:   "upload",
		Max:    cfg.UploadRateLimitMax,
		Window: cfg.UploadRateLimitWindow,
	}, log, onReject)

	registerCoreRoutes(engine, cfg, ready)
	v1.NewRoutes(provider, uploadLimiter).Register(engine)

	return &HttpServer{
		cfg:    cfg,
		engine: engine,
		log:    log,
	}
}

// Handler exposes the engine for tests.
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("media-api HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerCoreRoutes(engine *gin.Engine, cfg *config.Config, ready ReadinessCheck) {
	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": cfg.ServiceName, "status": "ok"})
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Local blobs are served by the service itself; S3 objects are served by the bucket.
	if cfg.IsLocalStorage() && cfg.LocalStoragePath != "" {
		engine.Static("/files", cfg.LocalStoragePath)
	}
}
