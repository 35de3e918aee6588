// Package api exposes the diagnostic core over HTTP: health-check and chat
// runs, tool schema listing, raw health counts, and the usual health, ready
// and metrics endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psops/sentry/internal/agent/loop"
	"github.com/psops/sentry/internal/agent/provider"
	"github.com/psops/sentry/internal/agent/tools"
	"github.com/psops/sentry/internal/datasource"
	"github.com/psops/sentry/internal/logging"
	"github.com/psops/sentry/internal/match"
)

// Runner executes one diagnostic run against the model. Satisfied by
// loop.Loop; narrowed to an interface so handler tests can script outcomes.
type Runner interface {
	Run(ctx context.Context, userMessage string, history []provider.Message) (*loop.Outcome, error)
}

// Config holds the server's HTTP settings.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Lookback bounds the health-check scan window.
	Lookback time.Duration
}

// Server handles HTTP API requests.
type Server struct {
	cfg      Config
	server   *http.Server
	router   *http.ServeMux
	logger   *logging.Logger
	source   datasource.Source
	matcher  *match.Matcher
	registry *tools.Registry
	runner   Runner
}

// New creates an API server wired to the data source, matcher, tool
// registry and agent loop.
func New(cfg Config, source datasource.Source, matcher *match.Matcher, registry *tools.Registry, runner Runner) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// A run can spend several model round trips before answering.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.Lookback == 0 {
		cfg.Lookback = datasource.DefaultLookback
	}

	s := &Server{
		cfg:      cfg,
		router:   http.NewServeMux(),
		logger:   logging.GetLogger("api"),
		source:   source,
		matcher:  matcher,
		registry: registry,
		runner:   runner,
	}

	s.registerHandlers()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.corsMiddleware(s.router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerHandlers() {
	s.router.HandleFunc("/api/health-check", s.withMethod(http.MethodPost, s.handleHealthCheck))
	s.router.HandleFunc("/api/chat", s.withMethod(http.MethodPost, s.handleChat))
	s.router.HandleFunc("/api/tools", s.withMethod(http.MethodGet, s.handleTools))
	s.router.HandleFunc("/api/system-summary", s.withMethod(http.MethodGet, s.handleSystemSummary))
	s.router.HandleFunc("/health", s.withMethod(http.MethodGet, s.handleHealth))
	s.router.HandleFunc("/ready", s.withMethod(http.MethodGet, s.handleReady))
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the routed handler including middleware, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening for requests. It returns once the listener
// goroutine is launched.
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.logger.Info("Starting API server on port %d", s.cfg.Port)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error: %v", err)
		return err
	}
	s.logger.Info("API server stopped")
	return nil
}

// Name implements the lifecycle.Component interface.
func (s *Server) Name() string {
	return "API Server"
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports readiness: the data source must answer a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.source.Ping(r.Context()); err != nil {
		s.logger.Warn("Readiness ping failed: %v", err)
		writeStatus(w, http.StatusServiceUnavailable, map[string]any{"ready": false})
		return
	}
	writeStatus(w, http.StatusOK, map[string]any{"ready": true})
}
