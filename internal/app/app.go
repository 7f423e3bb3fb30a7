// Package app provides the top-level application lifecycle for the risk
// governor daemon. It wires together all backends (stores, caches, blob
// storage, the Event Graph client, and notifications), constructs the
// governor, and runs the HTTP/WebSocket server and the archival loop until
// the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantfort/riskgovernor/internal/config"
	"github.com/quantfort/riskgovernor/internal/governor"
	"github.com/quantfort/riskgovernor/internal/server"
	"github.com/quantfort/riskgovernor/internal/server/handler"
	"github.com/quantfort/riskgovernor/internal/server/ws"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, restores the
// governor's persisted state, starts the server and background loops, and
// blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting risk governor",
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	hub := ws.NewHub(a.logger)

	gov := governor.New(
		governor.Config{
			ConsecutiveFailureLimit: a.cfg.Risk.ConsecutiveFailureLimit,
			EventGraphTimeout:       a.cfg.EventGraph.Timeout.Duration,
			NotifyTimeout:           a.cfg.Risk.NotifyTimeout.Duration,
		},
		governor.Deps{
			Checks:      deps.CheckStore,
			Transitions: deps.TransitionStore,
			Alerts:      deps.AlertStore,
			Snapshots:   deps.SnapshotStore,
			LimitsStore: deps.LimitsStore,
			Audit:       deps.AuditStore,
			EventGraph:  deps.EventGraph,
			Broadcaster: hub,
			Notifier:    notifierOrNil(deps),
		},
		a.cfg.Risk.Limits,
		a.logger,
	)
	if err := gov.Restore(ctx); err != nil {
		return fmt.Errorf("app: restore governor state: %w", err)
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		},
		server.Handlers{
			Check:     handler.NewCheckHandler(gov, a.logger),
			Breaker:   handler.NewBreakerHandler(gov, a.logger),
			Alerts:    handler.NewAlertHandler(gov, a.logger),
			Portfolio: handler.NewPortfolioHandler(gov, a.logger),
			Limits:    handler.NewLimitsHandler(gov, a.logger),
			History:   handler.NewHistoryHandler(gov, a.logger),
			Drift:     handler.NewDriftHandler(gov, a.logger),
			Health:    handler.NewHealthHandler(deps.Pingers, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveLoop(ctx, deps)
		})
	}

	return g.Wait()
}

// runArchiveLoop periodically moves check records older than the retention
// window to cold storage.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Archiver.Interval.Duration
	retention := time.Duration(a.cfg.Archiver.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "archive loop started",
		slog.Duration("interval", interval),
		slog.Int("retention_days", a.cfg.Archiver.RetentionDays),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			archived, err := deps.Archiver.ArchiveChecks(ctx, cutoff)
			if err != nil {
				a.logger.ErrorContext(ctx, "check archival failed",
					slog.Time("cutoff", cutoff),
					slog.String("error", err.Error()),
				)
				continue
			}
			if archived > 0 {
				a.logger.InfoContext(ctx, "archived check records",
					slog.Int64("count", archived),
					slog.Time("cutoff", cutoff),
				)
			}
		}
	}
}

// notifierOrNil avoids storing a typed nil in the governor's Notifier
// interface field when no notification channel is configured.
func notifierOrNil(deps *Dependencies) governor.Notifier {
	if deps.Notifier == nil {
		return nil
	}
	return deps.Notifier
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down risk governor")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
