package governor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfort/riskgovernor/internal/domain"
)

func snap(totalValue, dailyPnL, drawdownPct float64) domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{
		TotalValue:     totalValue,
		DailyPnL:       dailyPnL,
		WeeklyPnL:      dailyPnL * 3,
		MaxDrawdownPct: drawdownPct,
		PositionCount:  7,
		Timestamp:      time.Now().UTC(),
	}
}

func TestPortfolioUpdateHealthy(t *testing.T) {
	ctx := context.Background()
	g, d := newTestGovernor(t, Config{})

	require.NoError(t, g.UpdatePortfolio(ctx, snap(100000, 200, 1)))
	assert.Empty(t, d.alerts.alerts)

	latest, err := g.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, latest.TotalValue)
}

func TestPortfolioApproachingDailyLossWarns(t *testing.T) {
	ctx := context.Background()
	g, d := newTestGovernor(t, Config{})

	// Default daily budget is 3%; a 2.5% loss is past the 80% approach mark.
	require.NoError(t, g.UpdatePortfolio(ctx, snap(100000, -2500, 1)))

	require.Len(t, d.alerts.alerts, 1)
	assert.Equal(t, domain.AlertWarning, d.alerts.alerts[0].Severity)
	assert.Equal(t, "daily_loss_limit", d.alerts.alerts[0].Type)
	assert.Equal(t, domain.BreakerNormal, g.Status(ctx).State)
}

func TestPortfolioBreachedDailyLossEscalates(t *testing.T) {
	ctx := context.Background()
	g, d := newTestGovernor(t, Config{})

	require.NoError(t, g.UpdatePortfolio(ctx, snap(100000, -3500, 1)))

	require.Len(t, d.alerts.alerts, 1)
	assert.Equal(t, domain.AlertCritical, d.alerts.alerts[0].Severity)
	assert.Equal(t, domain.BreakerCaution, g.Status(ctx).State)
}

func TestPortfolioDrawdownBreachEscalates(t *testing.T) {
	ctx := context.Background()
	g, d := newTestGovernor(t, Config{})

	// Default drawdown budget is 15%.
	require.NoError(t, g.UpdatePortfolio(ctx, snap(100000, 100, 16)))

	require.Len(t, d.alerts.alerts, 1)
	assert.Equal(t, "drawdown_limit", d.alerts.alerts[0].Type)
	assert.Equal(t, domain.AlertCritical, d.alerts.alerts[0].Severity)
	assert.Equal(t, domain.BreakerCaution, g.Status(ctx).State)
}

func TestPortfolioValidation(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGovernor(t, Config{})

	err := g.UpdatePortfolio(ctx, snap(-1, 0, 0))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStatusSummary(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGovernor(t, Config{})

	_, err := g.CheckSignal(ctx, healthyRequest())
	require.NoError(t, err)

	bad := healthyRequest()
	bad.Size = 10000
	_, err = g.CheckSignal(ctx, bad)
	require.NoError(t, err)

	_, err = g.RaiseAlert(ctx, "ops", domain.AlertWarning, "heads up")
	require.NoError(t, err)

	summary, err := g.StatusSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.ChecksTotal)
	assert.Equal(t, int64(1), summary.ChecksApproved)
	assert.Equal(t, 0.5, summary.ApprovalRate)
	assert.Equal(t, int64(1), summary.UnacknowledgedAlerts)
}
