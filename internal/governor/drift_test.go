package governor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfort/riskgovernor/internal/domain"
)

func TestDriftExactMatch(t *testing.T) {
	// Scenario A: identical books verify cleanly with no breaker change.
	ctx := context.Background()
	g, d := newTestGovernor(t, Config{})

	expected := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideYes, Size: 100}}
	broker := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideYes, Size: 100}}

	report, err := g.DetectPositionDrift(ctx, expected, broker)
	require.NoError(t, err)

	assert.True(t, report.Verified)
	assert.Zero(t, report.MaxDriftPct)
	assert.Equal(t, domain.BreakerNormal, report.Recommendation)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, domain.DriftNone, report.Entries[0].Severity)

	assert.Equal(t, domain.BreakerNormal, g.Status(ctx).State)
	assert.Empty(t, d.alerts.alerts)
}

func TestDriftCriticalForcesHaltAndAlerts(t *testing.T) {
	// Scenario B: 6% drift is critical, forces HALT from NORMAL, and records
	// a critical alert.
	ctx := context.Background()
	g, d := newTestGovernor(t, Config{})

	expected := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideYes, Size: 100}}
	broker := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideYes, Size: 94}}

	report, err := g.DetectPositionDrift(ctx, expected, broker)
	require.NoError(t, err)

	assert.False(t, report.Verified)
	assert.InDelta(t, 6.0, report.MaxDriftPct, 1e-9)
	assert.Equal(t, 1, report.CriticalCount)
	assert.Equal(t, domain.BreakerHalt, report.Recommendation)
	assert.True(t, report.Applied)

	assert.Equal(t, domain.BreakerHalt, g.Status(ctx).State)

	require.Len(t, d.alerts.alerts, 1)
	assert.Equal(t, domain.AlertCritical, d.alerts.alerts[0].Severity)
	assert.Equal(t, "position_drift", d.alerts.alerts[0].Type)
}

func TestDriftWarningEscalatesNormalToCaution(t *testing.T) {
	ctx := context.Background()
	g, d := newTestGovernor(t, Config{})

	expected := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideYes, Size: 100}}
	broker := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideYes, Size: 97}}

	report, err := g.DetectPositionDrift(ctx, expected, broker)
	require.NoError(t, err)

	assert.Equal(t, domain.BreakerCaution, report.Recommendation)
	assert.Equal(t, domain.BreakerCaution, g.Status(ctx).State)

	require.Len(t, d.alerts.alerts, 1)
	assert.Equal(t, domain.AlertWarning, d.alerts.alerts[0].Severity)
}

func TestDriftNeverAutoDowngrades(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGovernor(t, Config{})

	_, err := g.Transition(ctx, domain.BreakerHalt, "already halted")
	require.NoError(t, err)

	// Clean reconciliation recommends NORMAL but must not downgrade HALT.
	expected := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideYes, Size: 100}}
	report, err := g.DetectPositionDrift(ctx, expected, expected)
	require.NoError(t, err)

	assert.Equal(t, domain.BreakerNormal, report.Recommendation)
	assert.False(t, report.Applied)
	assert.Equal(t, domain.BreakerHalt, g.Status(ctx).State)
}

func TestOrphanBrokerPositionsAreAlwaysCritical(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGovernor(t, Config{})

	broker := []domain.PositionSnapshot{
		{MarketID: "ZZZ", Side: domain.SideNo, Size: 0.0001}, // size-independent
	}

	report, err := g.DetectPositionDrift(ctx, nil, broker)
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.True(t, entry.Orphan)
	assert.Equal(t, domain.DriftCritical, entry.Severity)
	assert.Zero(t, entry.ExpectedSize)
	assert.Equal(t, domain.BreakerHalt, report.Recommendation)
}

func TestDriftSidesAreDistinctKeys(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGovernor(t, Config{})

	expected := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideYes, Size: 100}}
	broker := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideNo, Size: 100}}

	report, err := g.DetectPositionDrift(ctx, expected, broker)
	require.NoError(t, err)

	// Expected YES has no broker counterpart (100% drift) and broker NO is
	// an orphan.
	require.Len(t, report.Entries, 2)
	assert.Equal(t, 2, report.CriticalCount)
}

func TestExpectedZeroWithBrokerSize(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGovernor(t, Config{})

	expected := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideYes, Size: 0}}
	broker := []domain.PositionSnapshot{{MarketID: "AAA", Side: domain.SideYes, Size: 5}}

	report, err := g.DetectPositionDrift(ctx, expected, broker)
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	assert.InDelta(t, 100.0, report.Entries[0].DriftPct, 1e-9)
	assert.Equal(t, domain.DriftCritical, report.Entries[0].Severity)
}
