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
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/config"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/domain/routing"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/infrastructure/metrics"
	gatewaymw "github.com/murmurhq/murmur-server/services/api-gateway/internal/interfaces/httpserver/middlewares"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/interfaces/httpserver/proxy"
)

// ReadinessCheck reports whether the upstreams and the limiter backend are reachable.
type ReadinessCheck func(ctx context.Context) error

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
}

// New constructs the gateway. Every /v1 request passes, in order, the
// perimeter checks, the coarse per-IP limiter, admission, the sensitive
// endpoint limiter and finally dispatch.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	table *routing.Table,
	verifier gatewaymw.CredentialVerifier,
	limiter ratelimit.Provider,
	dispatcher *proxy.Dispatcher,
	ready ReadinessCheck,
) *HttpServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error().Err(err).Msg("invalid trusted proxies, keying limiters on the socket address")
		_ = engine.SetTrustedProxies(nil)
	}
	engine.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		observability.TracingMiddleware(cfg.ServiceName),
		middlewares.LoggingMiddleware(log),
		middlewares.MetricsMiddleware(metrics.RecordRequest),
		middlewares.CORSMiddleware(cfg.CORSOrigins),
	)

	registerCoreRoutes(engine, cfg, ready)

	perimeter := gatewaymw.Perimeter(cfg.MaxBodyBytes, metrics.RecordPerimeterRejection)
	coarse := ratelimit.Middleware(limiter, ratelimit.Rule{
		Name:   "ip",
		Max:    cfg.RateLimitMax,
		Window: cfg.RateLimitWindow,
	}, log, rejectionRecorder("coarse"))
	sensitive := gatewaymw.OnlySensitive(ratelimit.Middleware(limiter, ratelimit.Rule{
		Name:   "sensitive",
		Max:    cfg.SensitiveLimitMax,
		Window: cfg.SensitiveLimitWindow,
		Key:    gatewaymw.SensitiveKey(ratelimit.ClientIPKey),
	}, log, rejectionRecorder("sensitive")))
	admit := gatewaymw.Admit(table, verifier, log, metrics.RecordAuthFailure)

	engine.Any("/v1/*path", perimeter, coarse, admit, sensitive, dispatcher.Handle)
	engine.NoRoute(perimeter)
	engine.NoMethod(perimeter)

	return &HttpServer{
		cfg:    cfg,
		engine: engine,
		log:    log,
	}
}

func rejectionRecorder(limiter string) ratelimit.RejectFunc {
	return func(*gin.Context, ratelimit.Rule) {
		metrics.RecordRateLimitRejection(limiter)
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
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("api-gateway HTTP server listening")
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
}
