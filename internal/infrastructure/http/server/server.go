// Package server assembles the HTTP surface: RPC procedures, auth endpoints,
// the billing webhook, the realtime socket, web pages and operational probes
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/http/handlers"
	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/internal/infrastructure/http/rpc"
	"github.com/nourishlab/nourish/internal/infrastructure/http/web"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/infrastructure/realtime"
	apperrors "github.com/nourishlab/nourish/pkg/errors"
	"github.com/nourishlab/nourish/pkg/healthcheck"
)

const (
	defaultMetricsPath = "/metrics"
	livenessPath       = "/healthz"
	readinessPath      = "/readyz"
	websocketPath      = "/ws"
	compressionLevel   = 5
)

// Deps are the components the server mounts. Hub and Pages are optional.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Health  *healthcheck.HealthCheck
	Guard   *middleware.Guard
	RPC     *rpc.Builder
	Routers []*rpc.Router
	Auth    *handlers.AuthHandlers
	Webhook *handlers.WebhookHandler
	Hub     *realtime.Hub
	Pages   *web.Pages

	// Maintenance reports whether the service is in maintenance mode; it is
	// read per request so the flag can change at runtime
	Maintenance func() bool
}

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	router *chi.Mux
	server *http.Server
}

// NewServer creates the router and the listener configuration
func NewServer(deps Deps) *Server {
	s := &Server{
		cfg:    deps.Config,
		logger: deps.Logger.Named("http"),
	}
	s.router = s.setupRouter(deps)

	var handler http.Handler = s.router
	if deps.Config.Monitoring.EnableTracing {
		handler = otelhttp.NewHandler(handler, "http.server",
			otelhttp.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != livenessPath && r.URL.Path != readinessPath
			}),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	srv := deps.Config.Server
	s.server = &http.Server{
		Addr:              srv.Address(),
		Handler:           handler,
		ReadTimeout:       srv.ReadTimeout,
		WriteTimeout:      srv.WriteTimeout,
		IdleTimeout:       srv.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    srv.MaxHeaderBytes,
		ErrorLog:          zap.NewStdLog(s.logger),
	}
	return s
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter(deps Deps) *chi.Mux {
	cfg := deps.Config
	r := chi.NewRouter()

	metricsPath := cfg.Monitoring.MetricsPath
	if metricsPath == "" {
		metricsPath = defaultMetricsPath
	}

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger, deps.Metrics, livenessPath, readinessPath, metricsPath))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Security(cfg.IsProduction()))
	if cfg.Server.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if cfg.Server.EnableCompression {
		r.Use(newCompressor().Handler)
	}
	if deps.Maintenance != nil {
		r.Use(middleware.Maintenance(deps.Maintenance))
	}
	r.Use(deps.Guard.Handler)

	// Probes and metrics
	r.Get(livenessPath, deps.Health.LivenessHandler())
	r.Get(readinessPath, deps.Health.ReadinessHandler())
	if cfg.Monitoring.EnableMetrics {
		r.Handle(metricsPath, deps.Metrics.Handler())
	}

	// API
	deps.RPC.Mount(r, deps.Routers...)
	deps.Auth.Routes(r)
	r.Method(http.MethodPost, handlers.WebhookPath, deps.Webhook)

	if deps.Hub != nil {
		r.Handle(websocketPath, deps.Hub)
	}
	if deps.Pages != nil {
		deps.Pages.Routes(r)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, apperrors.NewNotFoundError("route"))
	})

	return r
}

// newCompressor negotiates brotli ahead of gzip and deflate
func newCompressor() *chimiddleware.Compressor {
	c := chimiddleware.NewCompressor(compressionLevel)
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.cfg.App.Environment),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
