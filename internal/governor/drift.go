package governor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// Position-drift severity thresholds (percent). The reconciliation process
// elsewhere uses its own four-tier scheme; this two-tier policy is the
// governor's.
const (
	driftWarningPct  = 2
	driftCriticalPct = 5
)

type driftKey struct {
	marketID string
	side     domain.Side
}

// DetectPositionDrift reconciles the expected book against the broker's
// report. Critical drift forces HALT; warning drift escalates NORMAL to
// CAUTION. Recommendations are applied only when they strictly escalate the
// current state; the detector never auto-downgrades. Any nonzero drift
// raises an alert mirroring the worst entry found.
func (g *Governor) DetectPositionDrift(ctx context.Context, expected, broker []domain.PositionSnapshot) (domain.PositionDriftReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	report := gradeDrift(expected, broker)

	// Escalate-only application of the recommendation.
	if report.Recommendation.Rank() > g.state.Rank() {
		var err error
		switch report.Recommendation {
		case domain.BreakerHalt:
			err = g.forceHalt(ctx, fmt.Sprintf("critical position drift: max %.2f%%", report.MaxDriftPct))
		case domain.BreakerCaution:
			if g.state == domain.BreakerNormal {
				err = g.applyTransition(ctx, domain.BreakerCaution,
					fmt.Sprintf("position drift warning: max %.2f%%", report.MaxDriftPct), false)
			}
		}
		if err != nil {
			return report, err
		}
		report.Applied = true
	}

	if err := g.audit.Log(ctx, "drift.position", map[string]any{
		"verified":       report.Verified,
		"max_drift_pct":  report.MaxDriftPct,
		"critical_count": report.CriticalCount,
		"warning_count":  report.WarningCount,
		"recommendation": string(report.Recommendation),
		"applied":        report.Applied,
	}); err != nil {
		return report, fmt.Errorf("governor: audit position drift: %w: %v", domain.ErrDependencyFailed, err)
	}

	if !report.Verified {
		severity := domain.AlertWarning
		if report.CriticalCount > 0 {
			severity = domain.AlertCritical
		}
		// Breaker escalation already happened above; route the alert without
		// a second ladder step.
		if _, err := g.recordAlertLocked(ctx, "position_drift", severity,
			fmt.Sprintf("position drift detected: max %.2f%% (%d critical, %d warning)",
				report.MaxDriftPct, report.CriticalCount, report.WarningCount)); err != nil {
			return report, err
		}
	}

	g.logger.InfoContext(ctx, "position drift check",
		slog.Bool("verified", report.Verified),
		slog.Float64("max_drift_pct", report.MaxDriftPct),
		slog.Int("critical", report.CriticalCount),
		slog.Int("warning", report.WarningCount),
		slog.String("recommendation", string(report.Recommendation)),
	)
	g.broadcast("drift.position", report)
	return report, nil
}

// gradeDrift is the pure reconciliation core: key both lists by
// (marketID, side), compute per-key drift percentages, and grade severities.
// Broker entries with no expected counterpart are orphans and always
// critical, independent of size.
func gradeDrift(expected, broker []domain.PositionSnapshot) domain.PositionDriftReport {
	brokerBy := make(map[driftKey]float64, len(broker))
	for _, b := range broker {
		brokerBy[driftKey{b.MarketID, b.Side}] += b.Size
	}

	report := domain.PositionDriftReport{
		Recommendation: domain.BreakerNormal,
		Entries:        []domain.PositionDriftEntry{},
		CheckedAt:      time.Now().UTC(),
	}

	seen := make(map[driftKey]bool, len(expected))
	for _, e := range expected {
		key := driftKey{e.MarketID, e.Side}
		seen[key] = true
		brokerSize := brokerBy[key]

		var driftPct float64
		switch {
		case e.Size > 0:
			driftPct = math.Abs(e.Size-brokerSize) / e.Size * 100
		case brokerSize > 0:
			driftPct = 100
		}

		report.Entries = append(report.Entries, domain.PositionDriftEntry{
			MarketID:     e.MarketID,
			Side:         e.Side,
			ExpectedSize: e.Size,
			BrokerSize:   brokerSize,
			DriftPct:     driftPct,
			Severity:     gradeSeverity(driftPct),
		})
	}

	for _, b := range broker {
		key := driftKey{b.MarketID, b.Side}
		if seen[key] {
			continue
		}
		seen[key] = true
		report.Entries = append(report.Entries, domain.PositionDriftEntry{
			MarketID:     b.MarketID,
			Side:         b.Side,
			ExpectedSize: 0,
			BrokerSize:   brokerBy[key],
			DriftPct:     100,
			Severity:     domain.DriftCritical,
			Orphan:       true,
		})
	}

	for _, entry := range report.Entries {
		if entry.DriftPct > report.MaxDriftPct {
			report.MaxDriftPct = entry.DriftPct
		}
		switch entry.Severity {
		case domain.DriftCritical:
			report.CriticalCount++
		case domain.DriftWarning:
			report.WarningCount++
		}
	}

	switch {
	case report.CriticalCount > 0 || report.MaxDriftPct >= driftCriticalPct:
		report.Recommendation = domain.BreakerHalt
	case report.WarningCount > 0 || report.MaxDriftPct >= driftWarningPct:
		report.Recommendation = domain.BreakerCaution
	}
	report.Verified = report.MaxDriftPct == 0

	return report
}

func gradeSeverity(driftPct float64) domain.DriftSeverity {
	switch {
	case driftPct >= driftCriticalPct:
		return domain.DriftCritical
	case driftPct >= driftWarningPct:
		return domain.DriftWarning
	}
	return domain.DriftNone
}

// recordAlertLocked persists, audits, broadcasts, and delivers an alert
// without touching the escalation ladder. Used by paths that manage breaker
// escalation themselves.
func (g *Governor) recordAlertLocked(ctx context.Context, alertType string, severity domain.AlertSeverity, message string) (domain.Alert, error) {
	alert := domain.Alert{
		ID:        newAlertID(),
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.alerts.Insert(ctx, alert); err != nil {
		return domain.Alert{}, fmt.Errorf("governor: record alert: %w: %v", domain.ErrDependencyFailed, err)
	}
	if err := g.audit.Log(ctx, "alert.raised", map[string]any{
		"id":       alert.ID,
		"type":     alert.Type,
		"severity": string(alert.Severity),
		"message":  alert.Message,
	}); err != nil {
		return domain.Alert{}, fmt.Errorf("governor: audit alert: %w: %v", domain.ErrDependencyFailed, err)
	}
	g.broadcast("alert", alert)
	g.notify(ctx, "alert."+string(severity), fmt.Sprintf("[%s] %s", severity, alertType), message)
	return alert, nil
}
