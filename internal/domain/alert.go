package domain

import "time"

// AlertSeverity grades an alert. Critical alerts feed the breaker's
// escalation ladder; warnings are informational.
type AlertSeverity string

const (
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Alert is one operator-facing event. Append-only except the acknowledged
// flag.
type Alert struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Severity     AlertSeverity `json:"severity"`
	Message      string        `json:"message"`
	Acknowledged bool          `json:"acknowledged"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// PortfolioSnapshot is a periodic account-level observation used to derive
// loss and drawdown alerts.
type PortfolioSnapshot struct {
	TotalValue     float64   `json:"totalValue"`
	DailyPnL       float64   `json:"dailyPnL"`
	WeeklyPnL      float64   `json:"weeklyPnL"`
	MaxDrawdownPct float64   `json:"maxDrawdown"`
	PositionCount  int       `json:"positionCount"`
	Timestamp      time.Time `json:"timestamp"`
}
