package governor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// approachFraction is the fraction of a loss/drawdown budget at which a
// warning alert is raised. At or above the full budget the alert is critical.
const approachFraction = 0.8

// UpdatePortfolio ingests a periodic portfolio snapshot, persists it, and
// raises alerts when the daily-loss or drawdown budgets are approached or
// exceeded. Critical alerts feed the breaker's escalation ladder.
func (g *Governor) UpdatePortfolio(ctx context.Context, snap domain.PortfolioSnapshot) error {
	if snap.TotalValue < 0 {
		return fmt.Errorf("%w: totalValue must not be negative", domain.ErrValidation)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.snapshots.Insert(ctx, snap); err != nil {
		return fmt.Errorf("governor: persist snapshot: %w: %v", domain.ErrDependencyFailed, err)
	}
	if err := g.audit.Log(ctx, "portfolio.snapshot", map[string]any{
		"total_value":    snap.TotalValue,
		"daily_pnl":      snap.DailyPnL,
		"weekly_pnl":     snap.WeeklyPnL,
		"max_drawdown":   snap.MaxDrawdownPct,
		"position_count": snap.PositionCount,
	}); err != nil {
		return fmt.Errorf("governor: audit snapshot: %w: %v", domain.ErrDependencyFailed, err)
	}

	g.logger.InfoContext(ctx, "portfolio snapshot ingested",
		slog.Float64("total_value", snap.TotalValue),
		slog.Float64("daily_pnl", snap.DailyPnL),
		slog.Float64("max_drawdown_pct", snap.MaxDrawdownPct),
	)
	g.broadcast("portfolio", snap)

	dailyLoss := lossPct(snap.DailyPnL, snap.TotalValue)
	if err := g.budgetAlertLocked(ctx, "daily_loss", dailyLoss, g.limits.MaxDailyLossPct); err != nil {
		return err
	}
	if err := g.budgetAlertLocked(ctx, "drawdown", snap.MaxDrawdownPct, g.limits.MaxDrawdownPct); err != nil {
		return err
	}
	return nil
}

// budgetAlertLocked raises a warning when actual reaches approachFraction of
// the budget, and a critical (ladder-escalating) alert when it reaches the
// budget itself.
func (g *Governor) budgetAlertLocked(ctx context.Context, kind string, actual, budget float64) error {
	if budget <= 0 {
		return nil
	}
	switch {
	case actual >= budget:
		_, err := g.raiseAlertLocked(ctx, kind+"_limit", domain.AlertCritical,
			fmt.Sprintf("%s %.2f%% breached budget %.2f%%", kind, actual, budget))
		return err
	case actual >= budget*approachFraction:
		_, err := g.recordAlertLocked(ctx, kind+"_limit", domain.AlertWarning,
			fmt.Sprintf("%s %.2f%% approaching budget %.2f%%", kind, actual, budget))
		return err
	}
	return nil
}

// LatestSnapshot returns the most recently ingested portfolio snapshot.
func (g *Governor) LatestSnapshot(ctx context.Context) (domain.PortfolioSnapshot, error) {
	return g.snapshots.Latest(ctx)
}
