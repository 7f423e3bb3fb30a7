package governor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// CheckSignal runs the full admission pipeline for a normalized trade
// request: correlation lookup, adjusted limits, the invariant battery,
// durable persistence of the outcome, and failure-counter bookkeeping.
//
// A blocked request is a normal negative decision, not an error; the error
// return covers evaluator failures only.
func (g *Governor) CheckSignal(ctx context.Context, req domain.RiskCheckRequest) (domain.CheckDecision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.fetchCorrelations(ctx, &req)

	decision := g.evaluateLocked(req, time.Now().UTC())

	// Persist the outcome before acknowledging the caller. Ledger failures
	// are fail-closed: the request is not approved when the decision cannot
	// be recorded.
	if err := g.persistDecision(ctx, req, &decision); err != nil {
		decision.Approved = false
		decision.Reason = "risk ledger unavailable; failing closed"
		g.logger.ErrorContext(ctx, "decision persistence failed, failing closed",
			slog.String("market_id", req.MarketID),
			slog.String("error", err.Error()),
		)
	}

	// Counter bookkeeping: reset on approve, increment on block, force HALT
	// at the configured threshold regardless of current state.
	if decision.Approved {
		g.consecutiveFailures = 0
	} else {
		g.consecutiveFailures++
		if g.consecutiveFailures >= g.cfg.ConsecutiveFailureLimit {
			reason := fmt.Sprintf("%d consecutive blocked checks", g.consecutiveFailures)
			if err := g.forceHalt(ctx, reason); err != nil {
				g.logger.ErrorContext(ctx, "forced halt failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	g.logger.InfoContext(ctx, "risk check decided",
		slog.String("check_id", decision.CheckID),
		slog.String("market_id", req.MarketID),
		slog.String("strategy", req.Strategy),
		slog.Bool("approved", decision.Approved),
		slog.Int("checks_run", decision.ChecksRun),
		slog.Int("checks_passed", decision.ChecksPassed),
		slog.Int("consecutive_failures", g.consecutiveFailures),
		slog.String("breaker_state", string(g.state)),
	)
	g.broadcast("check", decision)
	return decision, nil
}

// CheckInvariants is the side-effect-free variant: it computes adjusted
// limits and runs the battery, but writes no history, mutates no counter,
// and performs no Event Graph lookup. Correlated exposure is evaluated
// against whatever correlations the caller supplied. Calling it twice with
// the same request yields identical results.
func (g *Governor) CheckInvariants(ctx context.Context, req domain.RiskCheckRequest) (domain.CheckDecision, []domain.InvariantResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UTC()
	adj := AdjustedLimits(g.limits, g.state)
	results := runInvariants(req, g.state, adj, now)
	decision := summarize(results, g.state, now)
	decision.CheckID = "" // dry run, nothing persisted
	return decision, results, nil
}

// evaluateLocked computes the decision for a request under the current
// breaker state. Pure with respect to governor state.
func (g *Governor) evaluateLocked(req domain.RiskCheckRequest, now time.Time) domain.CheckDecision {
	adj := AdjustedLimits(g.limits, g.state)
	results := runInvariants(req, g.state, adj, now)
	decision := summarize(results, g.state, now)
	decision.CheckID = uuid.NewString()
	return decision
}

// summarize folds invariant results into a decision. A request is blocked
// iff at least one critical invariant fails; warning failures are surfaced
// but never block.
func summarize(results []domain.InvariantResult, state domain.BreakerState, now time.Time) domain.CheckDecision {
	decision := domain.CheckDecision{
		Warnings:     []domain.InvariantResult{},
		ChecksRun:    len(results),
		BreakerState: state,
		EvaluatedAt:  now,
	}
	for _, r := range results {
		if r.Passed {
			decision.ChecksPassed++
			continue
		}
		switch r.Severity {
		case domain.SeverityCritical:
			decision.CriticalFailures = append(decision.CriticalFailures, r)
		case domain.SeverityWarning:
			decision.Warnings = append(decision.Warnings, r)
		}
	}
	decision.Approved = len(decision.CriticalFailures) == 0
	if !decision.Approved {
		decision.Reason = fmt.Sprintf("%d critical invariant(s) failed: %s",
			len(decision.CriticalFailures), failureIDs(decision.CriticalFailures))
	}
	return decision
}

// fetchCorrelations populates req.CorrelatedMarkets from the Event Graph
// when the caller did not supply them. This lookup is the system's only
// sanctioned fail-open branch: on any failure the evaluation proceeds with
// an empty correlation set.
func (g *Governor) fetchCorrelations(ctx context.Context, req *domain.RiskCheckRequest) {
	if len(req.CorrelatedMarkets) > 0 || g.eventGraph == nil {
		return
	}

	lctx, cancel := context.WithTimeout(ctx, g.cfg.EventGraphTimeout)
	defer cancel()

	markets, err := g.eventGraph.CorrelatedMarkets(lctx, req.MarketID)
	if err != nil {
		g.logger.WarnContext(ctx, "event graph lookup degraded, proceeding without correlations",
			slog.String("market_id", req.MarketID),
			slog.String("error", err.Error()),
		)
		req.CorrelatedMarkets = nil
		return
	}
	req.CorrelatedMarkets = markets
}

// persistDecision writes the check record and the audit entry. Both must
// succeed before the decision is acknowledged.
func (g *Governor) persistDecision(ctx context.Context, req domain.RiskCheckRequest, d *domain.CheckDecision) error {
	rec := domain.CheckRecord{
		ID:           d.CheckID,
		MarketID:     req.MarketID,
		Venue:        req.Venue,
		Side:         req.Side,
		Strategy:     req.Strategy,
		Size:         req.Size,
		Price:        req.Price,
		Approved:     d.Approved,
		Reason:       d.Reason,
		FailedIDs:    resultIDs(d.CriticalFailures),
		WarningIDs:   resultIDs(d.Warnings),
		ChecksRun:    d.ChecksRun,
		ChecksPassed: d.ChecksPassed,
		BreakerState: d.BreakerState,
		CreatedAt:    d.EvaluatedAt,
	}
	if err := g.checks.Insert(ctx, rec); err != nil {
		return fmt.Errorf("governor: persist check: %w: %v", domain.ErrDependencyFailed, err)
	}
	if err := g.audit.Log(ctx, "check.decided", map[string]any{
		"check_id":      rec.ID,
		"market_id":     rec.MarketID,
		"strategy":      rec.Strategy,
		"approved":      rec.Approved,
		"failed_ids":    rec.FailedIDs,
		"warning_ids":   rec.WarningIDs,
		"checks_run":    rec.ChecksRun,
		"checks_passed": rec.ChecksPassed,
		"breaker_state": string(rec.BreakerState),
	}); err != nil {
		return fmt.Errorf("governor: audit check: %w: %v", domain.ErrDependencyFailed, err)
	}
	return nil
}

func resultIDs(results []domain.InvariantResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}

func failureIDs(results []domain.InvariantResult) string {
	out := ""
	for i, r := range results {
		if i > 0 {
			out += ", "
		}
		out += r.ID
	}
	return out
}
