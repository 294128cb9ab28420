package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/middleware"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/programs"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/ws"
)

// Inspector is the read-only kernel view the server publishes.
type Inspector interface {
	Envs() []kernel.EnvInfo
	Stats() kernel.Stats
}

// Console is program output the server can replay and follow.
type Console interface {
	Lines() []programs.Line
	ws.Source
}

// Deps are the things the server publishes. Console and RunID are optional.
type Deps struct {
	Inspector Inspector
	Console   Console
	RunID     id.RunID
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
}

// Server is the HTTP inspection server
type Server struct {
	router  *gin.Engine
	http    *http.Server
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a server publishing deps
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("server")
	metrics := deps.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(monitoring.Middleware(metrics))

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	}
	router.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := NewHandlers(deps.Inspector, deps.Console, deps.RunID)

	// Register routes
	router.GET("/health", handlers.Health)
	router.GET("/envs", handlers.ListEnvs)
	router.GET("/envs/:id", handlers.GetEnv)
	router.GET("/stats", handlers.Stats)
	if deps.Console != nil {
		router.GET("/console", handlers.Console)
		router.GET("/console/stream", ws.NewHandler(deps.Console, logger).HandleConnection)
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	return &Server{
		router:  router,
		http:    &http.Server{Addr: addr, Handler: router},
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Close is called
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("inspection server: %w", err)
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down server", zap.Error(err))
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
