// Package governor implements the Risk Governor: a fail-closed admission
// gate every trade signal passes before execution, the circuit-breaker state
// machine gating system-wide trading permission, and the two drift detectors
// that can escalate it.
package governor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// Broadcaster pushes governor events to live monitoring clients. Delivery is
// best-effort and never blocks a decision.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Notifier delivers operator notifications. Delivery is fire-and-forget from
// the governor's perspective.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config holds the governor's behavioral knobs.
type Config struct {
	// ConsecutiveFailureLimit is the number of consecutive blocked checks
	// that forces an unconditional HALT. Default 3.
	ConsecutiveFailureLimit int

	// EventGraphTimeout bounds the correlated-market lookup so a hung Event
	// Graph cannot stall the authority.
	EventGraphTimeout time.Duration

	// NotifyTimeout bounds outbound alert delivery.
	NotifyTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConsecutiveFailureLimit <= 0 {
		c.ConsecutiveFailureLimit = 3
	}
	if c.EventGraphTimeout <= 0 {
		c.EventGraphTimeout = 3 * time.Second
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 5 * time.Second
	}
	return c
}

// Deps bundles the governor's collaborators. EventGraph, Broadcaster and
// Notifier may be nil; the stores are required.
type Deps struct {
	Checks      domain.CheckStore
	Transitions domain.TransitionStore
	Alerts      domain.AlertStore
	Snapshots   domain.SnapshotStore
	LimitsStore domain.LimitsStore
	Audit       domain.AuditStore
	EventGraph  domain.EventGraph
	Broadcaster Broadcaster
	Notifier    Notifier
}

// Governor is the singleton admission-control authority. It exclusively owns
// the breaker state, the failure counter, and the base limits; every request
// runs to completion under one mutex before the next begins, so no two
// mutations can interleave (the serialized-request model from the design).
type Governor struct {
	mu sync.Mutex

	state               domain.BreakerState
	lastStateChange     time.Time
	consecutiveFailures int
	limits              domain.RiskLimits

	cfg  Config
	deps Deps

	checks      domain.CheckStore
	transitions domain.TransitionStore
	alerts      domain.AlertStore
	snapshots   domain.SnapshotStore
	limitsStore domain.LimitsStore
	audit       domain.AuditStore
	eventGraph  domain.EventGraph
	broadcaster Broadcaster
	notifier    Notifier

	logger *slog.Logger
}

// New creates a Governor starting in NORMAL with the given base limits.
// Callers should invoke Restore afterwards to recover persisted state.
func New(cfg Config, deps Deps, limits domain.RiskLimits, logger *slog.Logger) *Governor {
	return &Governor{
		state:           domain.BreakerNormal,
		lastStateChange: time.Now().UTC(),
		limits:          limits,
		cfg:             cfg.withDefaults(),
		deps:            deps,
		checks:          deps.Checks,
		transitions:     deps.Transitions,
		alerts:          deps.Alerts,
		snapshots:       deps.Snapshots,
		limitsStore:     deps.LimitsStore,
		audit:           deps.Audit,
		eventGraph:      deps.EventGraph,
		broadcaster:     deps.Broadcaster,
		notifier:        deps.Notifier,
		logger:          logger.With(slog.String("component", "governor")),
	}
}

// Restore loads persisted limits and the last recorded breaker state so a
// restart does not silently reopen a halted system.
func (g *Governor) Restore(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limitsStore != nil {
		limits, err := g.limitsStore.Get(ctx)
		switch {
		case err == nil:
			g.limits = limits
		case errorsIsNotFound(err):
			// No persisted row yet; keep the configured defaults.
		default:
			return fmt.Errorf("governor: restore limits: %w", err)
		}
	}

	last, err := g.transitions.Latest(ctx)
	switch {
	case err == nil:
		g.state = last.To
		g.lastStateChange = last.Timestamp
	case errorsIsNotFound(err):
	default:
		return fmt.Errorf("governor: restore breaker state: %w", err)
	}

	g.logger.InfoContext(ctx, "governor state restored",
		slog.String("state", string(g.state)),
	)
	return nil
}

// broadcast pushes an event to the hub if one is attached.
func (g *Governor) broadcast(event string, payload any) {
	if g.broadcaster != nil {
		g.broadcaster.Broadcast(event, payload)
	}
}

// notify delivers an operator notification under a bounded timeout. Failures
// are logged, never propagated: notification is not a decision path.
func (g *Governor) notify(ctx context.Context, event, title, message string) {
	if g.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.NotifyTimeout)
	defer cancel()
	if err := g.notifier.Notify(nctx, event, title, message); err != nil {
		g.logger.WarnContext(ctx, "notification delivery failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// RaiseAlert records an alert, broadcasts and delivers it, and, when the
// severity is critical, walks the breaker one step up the escalation ladder.
func (g *Governor) RaiseAlert(ctx context.Context, alertType string, severity domain.AlertSeverity, message string) (domain.Alert, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.raiseAlertLocked(ctx, alertType, severity, message)
}

func (g *Governor) raiseAlertLocked(ctx context.Context, alertType string, severity domain.AlertSeverity, message string) (domain.Alert, error) {
	alert, err := g.recordAlertLocked(ctx, alertType, severity, message)
	if err != nil {
		return domain.Alert{}, err
	}

	g.logger.InfoContext(ctx, "alert raised",
		slog.String("id", alert.ID),
		slog.String("type", alert.Type),
		slog.String("severity", string(alert.Severity)),
		slog.String("message", alert.Message),
	)

	if severity == domain.AlertCritical {
		if err := g.escalateOneStep(ctx, "critical alert: "+alertType); err != nil {
			return alert, err
		}
	}
	return alert, nil
}

func newAlertID() string {
	return uuid.NewString()
}

// AcknowledgeAlert flips the acknowledged flag on a recorded alert.
func (g *Governor) AcknowledgeAlert(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.alerts.Acknowledge(ctx, id); err != nil {
		return err
	}
	return g.audit.Log(ctx, "alert.acknowledged", map[string]any{"id": id})
}

// Alerts lists recorded alerts.
func (g *Governor) Alerts(ctx context.Context, opts domain.ListOpts) ([]domain.Alert, error) {
	return g.alerts.List(ctx, opts)
}

// Limits returns the current base limits.
func (g *Governor) Limits(ctx context.Context) domain.RiskLimits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limits
}

// UpdateLimits replaces the base limits after validation and persists them.
// The breaker's adjusted limits are derived on demand, so no scaling state
// needs recomputing here.
func (g *Governor) UpdateLimits(ctx context.Context, limits domain.RiskLimits) (domain.RiskLimits, error) {
	if err := limits.Validate(); err != nil {
		return domain.RiskLimits{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limitsStore != nil {
		if err := g.limitsStore.Put(ctx, limits); err != nil {
			return domain.RiskLimits{}, fmt.Errorf("governor: persist limits: %w: %v", domain.ErrDependencyFailed, err)
		}
	}
	if err := g.audit.Log(ctx, "limits.updated", map[string]any{
		"old": g.limits,
		"new": limits,
	}); err != nil {
		return domain.RiskLimits{}, fmt.Errorf("governor: audit limits update: %w: %v", domain.ErrDependencyFailed, err)
	}

	g.limits = limits
	g.logger.InfoContext(ctx, "base risk limits updated")
	return g.limits, nil
}

// History lists the persisted check history.
func (g *Governor) History(ctx context.Context, opts domain.ListOpts) ([]domain.CheckRecord, error) {
	return g.checks.List(ctx, opts)
}

// AggregateStatus summarizes the governor for monitoring: breaker state,
// approval rate, and unacknowledged alert count.
type AggregateStatus struct {
	BreakerState        domain.BreakerState `json:"circuitBreakerState"`
	ConsecutiveFailures int                 `json:"consecutiveFailures"`
	ChecksTotal         int64               `json:"checksTotal"`
	ChecksApproved      int64               `json:"checksApproved"`
	ApprovalRate        float64             `json:"approvalRate"`
	UnacknowledgedAlerts int64              `json:"unacknowledgedAlerts"`
}

// StatusSummary computes the aggregate monitoring view.
func (g *Governor) StatusSummary(ctx context.Context) (AggregateStatus, error) {
	g.mu.Lock()
	state := g.state
	failures := g.consecutiveFailures
	g.mu.Unlock()

	total, approved, err := g.checks.Count(ctx)
	if err != nil {
		return AggregateStatus{}, fmt.Errorf("governor: count checks: %w", err)
	}
	unacked, err := g.alerts.CountUnacknowledged(ctx)
	if err != nil {
		return AggregateStatus{}, fmt.Errorf("governor: count alerts: %w", err)
	}

	rate := 0.0
	if total > 0 {
		rate = float64(approved) / float64(total)
	}
	return AggregateStatus{
		BreakerState:         state,
		ConsecutiveFailures:  failures,
		ChecksTotal:          total,
		ChecksApproved:       approved,
		ApprovalRate:         rate,
		UnacknowledgedAlerts: unacked,
	}, nil
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
