package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/Richard-Rogalski/PrisonLauncher/internal/api/http"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/api/middleware"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/api/ws"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/loader"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/config"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/eventbus"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/logging"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/monitoring"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/tracing"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/watch"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
	list    *instance.List
	hub     *ws.Hub
	bus     *eventbus.Bus
	router  *gin.Engine
	http    *http.Server

	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	return NewServerWithLogger(cfg, logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development))
}

// NewServerWithLogger creates a server that logs to logger. The instance
// list is loaded before it returns.
func NewServerWithLogger(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("Initializing PrisonLauncher server",
		zap.String("port", cfg.Server.Port),
		zap.String("instances", cfg.Instances.Dir),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("server", logger.Component("tracing"))

	// Instance list
	cfgLoader := loader.NewCfgLoader(logger.Component("loader"), cfg.Instances.KnownTypes...).
		WithMarker(cfg.Instances.Marker)
	scanner := instance.NewScanner(cfgLoader, logger.Component("scanner")).
		WithMarker(cfg.Instances.Marker).
		WithIgnore(cfg.Instances.Ignore...)
	list := instance.NewList(cfg.Instances.Dir, scanner, logger.Component("instances")).
		WithGroupFile(cfg.Instances.GroupFile).
		WithRecorder(metrics)

	s := &Server{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		list:    list,
		hub:     ws.NewHub(list, logger.Component("stream")).WithMetrics(metrics),
	}

	// Event bus (optional)
	if cfg.Redis.Enabled() {
		bus, err := eventbus.Dial(context.Background(), cfg.Redis.URL, cfg.Redis.Channel, logger.Component("eventbus"))
		if err != nil {
			logger.Warn("Event bus disabled", zap.Error(err))
		} else {
			bus.WithRecorder(metrics).Attach(list)
			s.bus = bus
			logger.Info("Publishing instance events", zap.String("channel", cfg.Redis.Channel))
		}
	}

	report := list.LoadAll(context.Background())
	logger.Info("Initial instance load complete",
		zap.Int("loaded", report.Loaded),
		zap.Int("grouped", report.Grouped),
		zap.Duration("duration", report.Duration),
	)

	// Auto reload (optional)
	if cfg.Watch.Enabled {
		if err := s.startWatcher(); err != nil {
			logger.Warn("Auto reload disabled", zap.Error(err))
		}
	}

	s.router = s.buildRouter()
	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		rateCfg := middleware.DefaultRateLimitConfig()
		rateCfg.RequestsPerSecond = s.config.RateLimit.RequestsPerSecond
		rateCfg.Burst = s.config.RateLimit.Burst
		router.Use(middleware.RateLimit(rateCfg))
	}

	apihttp.NewHandlers(s.list, s.logger.Component("api")).
		WithMetrics(s.metrics).
		Register(router)

	// WebSocket
	router.GET("/stream", s.hub.HandleConnection)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	return router
}

func (s *Server) startWatcher() error {
	w, err := watch.New(s.list.Root(), s.list.GroupFile(), s.list,
		s.config.Watch.Debounce.Std(), s.logger.Component("watch"))
	if err != nil {
		return err
	}
	w.WithMarker(s.config.Instances.Marker)

	ctx, cancel := context.WithCancel(context.Background())
	s.stopWatch = cancel
	s.watchDone = make(chan struct{})
	go func() {
		defer close(s.watchDone)
		if err := w.Run(ctx); err != nil {
			s.logger.Error("Watcher stopped", zap.Error(err))
		}
	}()

	s.logger.Info("Auto reload enabled", zap.Duration("debounce", s.config.Watch.Debounce.Std()))
	return nil
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// List returns the served instance list
func (s *Server) List() *instance.List {
	return s.list
}

// Run starts the HTTP server and blocks until it is closed
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stream clients are hijacked connections and are not closed by Shutdown
	s.hub.Close()

	var shutdownErr error
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
		shutdownErr = fmt.Errorf("failed to shut down http server: %w", err)
	}

	if s.stopWatch != nil {
		s.stopWatch()
		<-s.watchDone
	}

	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			s.logger.Error("Failed to close event bus", zap.Error(err))
		}
	}

	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()

	return shutdownErr
}
