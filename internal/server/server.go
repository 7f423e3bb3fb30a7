// Package server wires the governor's HTTP and WebSocket surface: admission
// checks, circuit-breaker control, alerts, portfolio snapshots, limit
// administration, history, and drift detection.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
	"github.com/quantfort/riskgovernor/internal/server/handler"
	"github.com/quantfort/riskgovernor/internal/server/middleware"
	"github.com/quantfort/riskgovernor/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit requests per RateWindow per client IP. Zero disables the
	// rate-limit middleware.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Check     *handler.CheckHandler
	Breaker   *handler.BreakerHandler
	Alerts    *handler.AlertHandler
	Portfolio *handler.PortfolioHandler
	Limits    *handler.LimitsHandler
	History   *handler.HistoryHandler
	Drift     *handler.DriftHandler
	Health    *handler.HealthHandler
}

// Server is the governor's HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (rate limit, auth, logging, CORS) applied. The rate
// limiter is optional; pass nil to skip it.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Admission checks.
	mux.HandleFunc("POST /check-signal", handlers.Check.CheckSignal)
	mux.HandleFunc("POST /check-invariants", handlers.Check.CheckInvariants)

	// Circuit breaker.
	mux.HandleFunc("GET /circuit-breaker/status", handlers.Breaker.GetStatus)
	mux.HandleFunc("POST /circuit-breaker/transition", handlers.Breaker.Transition)
	mux.HandleFunc("POST /circuit-breaker/reset", handlers.Breaker.Reset)

	// Alerts.
	mux.HandleFunc("POST /alert/critical", handlers.Alerts.RaiseCritical)
	mux.HandleFunc("POST /alert/acknowledge", handlers.Alerts.Acknowledge)
	mux.HandleFunc("GET /alerts", handlers.Alerts.List)

	// Portfolio.
	mux.HandleFunc("POST /portfolio/update", handlers.Portfolio.Update)
	mux.HandleFunc("GET /portfolio/snapshot", handlers.Portfolio.GetSnapshot)

	// Limits.
	mux.HandleFunc("GET /limits", handlers.Limits.Get)
	mux.HandleFunc("POST /limits/update", handlers.Limits.Update)

	// History and aggregate status.
	mux.HandleFunc("GET /history", handlers.History.List)
	mux.HandleFunc("GET /status", handlers.History.GetStatus)

	// Drift detection.
	mux.HandleFunc("POST /detect-position-drift", handlers.Drift.DetectPositionDrift)
	mux.HandleFunc("POST /assess-llm-drift", handlers.Drift.AssessModelDrift)

	// Health check.
	mux.HandleFunc("GET /health", handlers.Health.HealthCheck)

	// WebSocket event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey)(h)

	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
