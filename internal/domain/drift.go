package domain

import "time"

// DriftSeverity grades positional divergence between the governor's expected
// book and the broker's reported book.
type DriftSeverity string

const (
	DriftNone     DriftSeverity = "none"
	DriftWarning  DriftSeverity = "warning"
	DriftCritical DriftSeverity = "critical"
)

// PositionSnapshot is one (market, side) position as reported by either the
// internal ledger or the broker.
type PositionSnapshot struct {
	MarketID string  `json:"marketId"`
	Side     Side    `json:"side"`
	Size     float64 `json:"size"`
}

// PositionDriftEntry is the per-key reconciliation result.
type PositionDriftEntry struct {
	MarketID     string        `json:"marketId"`
	Side         Side          `json:"side"`
	ExpectedSize float64       `json:"expectedSize"`
	BrokerSize   float64       `json:"brokerSize"`
	DriftPct     float64       `json:"driftPct"`
	Severity     DriftSeverity `json:"severity"`
	Orphan       bool          `json:"orphan,omitempty"`
}

// PositionDriftReport is the detector's full output for one reconciliation
// pass.
type PositionDriftReport struct {
	Verified       bool                 `json:"verified"`
	MaxDriftPct    float64              `json:"maxDriftPct"`
	CriticalCount  int                  `json:"criticalCount"`
	WarningCount   int                  `json:"warningCount"`
	Recommendation BreakerState         `json:"recommendation"`
	Applied        bool                 `json:"escalationApplied"`
	Entries        []PositionDriftEntry `json:"report"`
	CheckedAt      time.Time            `json:"checkedAt"`
}
