package governor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// validTransitions is the closed set of permitted breaker edges. Any edge not
// listed is rejected. Forced transitions (consecutive-failure HALT, critical
// position drift) bypass this table through forceTransition.
var validTransitions = map[domain.BreakerState][]domain.BreakerState{
	domain.BreakerNormal:   {domain.BreakerCaution, domain.BreakerHalt},
	domain.BreakerCaution:  {domain.BreakerNormal, domain.BreakerHalt, domain.BreakerRecovery},
	domain.BreakerHalt:     {domain.BreakerRecovery},
	domain.BreakerRecovery: {domain.BreakerNormal, domain.BreakerCaution, domain.BreakerHalt},
}

// transitionAllowed reports whether from -> to is in the table.
func transitionAllowed(from, to domain.BreakerState) bool {
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AdjustedLimits derives state-scaled limits from the base configuration.
// It is a pure function recomputed on demand; the base is never mutated.
//
// CAUTION halves the size-bearing limits plus the daily-loss budget, RECOVERY
// scales the same four by 0.75, and HALT zeroes the size-bearing limits so
// every order-size invariant fails trivially while halted.
func AdjustedLimits(base domain.RiskLimits, state domain.BreakerState) domain.RiskLimits {
	adj := base
	switch state {
	case domain.BreakerCaution:
		adj.MaxPositionPct *= 0.5
		adj.MaxConcentrationPct *= 0.5
		adj.MaxOrderSize *= 0.5
		adj.MaxDailyLossPct *= 0.5
	case domain.BreakerHalt:
		adj.MaxPositionPct = 0
		adj.MaxConcentrationPct = 0
		adj.MaxOrderSize = 0
	case domain.BreakerRecovery:
		adj.MaxPositionPct *= 0.75
		adj.MaxConcentrationPct *= 0.75
		adj.MaxOrderSize *= 0.75
		adj.MaxDailyLossPct *= 0.75
	}
	return adj
}

// applyTransition is the single mutation path for breaker state. It appends
// the transition record and the audit entry before the in-memory state is
// considered changed (write-before-acknowledge). Callers must hold g.mu and
// must have validated the edge (or be a privileged forced path).
func (g *Governor) applyTransition(ctx context.Context, to domain.BreakerState, reason string, forced bool) error {
	from := g.state
	rec := domain.TransitionRecord{
		From:      from,
		To:        to,
		Reason:    reason,
		Forced:    forced,
		Timestamp: time.Now().UTC(),
	}

	if err := g.transitions.Insert(ctx, rec); err != nil {
		return fmt.Errorf("governor: record transition %s -> %s: %w: %v", from, to, domain.ErrDependencyFailed, err)
	}
	if err := g.audit.Log(ctx, "breaker.transition", map[string]any{
		"from":   string(from),
		"to":     string(to),
		"reason": reason,
		"forced": forced,
	}); err != nil {
		return fmt.Errorf("governor: audit transition %s -> %s: %w: %v", from, to, domain.ErrDependencyFailed, err)
	}

	g.state = to
	g.lastStateChange = rec.Timestamp

	g.logger.InfoContext(ctx, "breaker transition",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("reason", reason),
		slog.Bool("forced", forced),
	)
	g.broadcast("breaker.transition", rec)
	return nil
}

// forceHalt is the privileged transition used when the consecutive-failure
// threshold is reached or critical position drift is detected. It bypasses
// the table's single-step semantics.
func (g *Governor) forceHalt(ctx context.Context, reason string) error {
	if g.state == domain.BreakerHalt {
		return nil
	}
	return g.applyTransition(ctx, domain.BreakerHalt, reason, true)
}

// escalateOneStep walks the alert-escalation ladder: NORMAL -> CAUTION,
// CAUTION -> HALT. Other states are left unchanged; the ladder never
// downgrades and never skips a step.
func (g *Governor) escalateOneStep(ctx context.Context, reason string) error {
	switch g.state {
	case domain.BreakerNormal:
		return g.applyTransition(ctx, domain.BreakerCaution, reason, false)
	case domain.BreakerCaution:
		return g.applyTransition(ctx, domain.BreakerHalt, reason, false)
	}
	return nil
}

// Transition requests an explicit breaker transition. Edges outside the
// valid-transition table are rejected with no mutation and no history write.
func (g *Governor) Transition(ctx context.Context, target domain.BreakerState, reason string) (domain.BreakerStatus, error) {
	if !target.Valid() {
		return domain.BreakerStatus{}, fmt.Errorf("%w: unknown state %q", domain.ErrValidation, target)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !transitionAllowed(g.state, target) {
		return g.statusLocked(ctx), fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, g.state, target)
	}
	if err := g.applyTransition(ctx, target, reason, false); err != nil {
		return g.statusLocked(ctx), err
	}
	return g.statusLocked(ctx), nil
}

// Reset returns the breaker to NORMAL and clears the failure counter.
// Resetting from HALT requires force.
func (g *Governor) Reset(ctx context.Context, reason string, force bool) (domain.BreakerStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == domain.BreakerHalt && !force {
		return g.statusLocked(ctx), domain.ErrResetRequiresForce
	}

	if g.state != domain.BreakerNormal {
		if err := g.applyTransition(ctx, domain.BreakerNormal, reason, force); err != nil {
			return g.statusLocked(ctx), err
		}
	}
	g.consecutiveFailures = 0
	return g.statusLocked(ctx), nil
}

// Status returns the breaker snapshot with adjusted limits and recent history.
func (g *Governor) Status(ctx context.Context) domain.BreakerStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusLocked(ctx)
}

func (g *Governor) statusLocked(ctx context.Context) domain.BreakerStatus {
	recent, err := g.transitions.ListRecent(ctx, 10)
	if err != nil {
		g.logger.WarnContext(ctx, "breaker status: transition history unavailable",
			slog.String("error", err.Error()),
		)
	}
	return domain.BreakerStatus{
		State:               g.state,
		LastStateChange:     g.lastStateChange,
		ConsecutiveFailures: g.consecutiveFailures,
		AdjustedLimits:      AdjustedLimits(g.limits, g.state),
		RecentTransitions:   recent,
	}
}
