package domain

import "time"

// InvariantSeverity classifies how an invariant failure affects admission.
// Critical failures block the request; warnings are surfaced and audited but
// never block.
type InvariantSeverity string

const (
	SeverityCritical InvariantSeverity = "critical"
	SeverityWarning  InvariantSeverity = "warning"
)

// InvariantResult is the outcome of one named rule against a request.
type InvariantResult struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Passed    bool              `json:"passed"`
	Actual    float64           `json:"actual"`
	Threshold float64           `json:"threshold"`
	Severity  InvariantSeverity `json:"severity"`
	Message   string            `json:"message"`
}

// CheckDecision is the evaluator's verdict on one request.
type CheckDecision struct {
	CheckID          string            `json:"checkId"`
	Approved         bool              `json:"approved"`
	Reason           string            `json:"reason,omitempty"`
	CriticalFailures []InvariantResult `json:"violations,omitempty"`
	Warnings         []InvariantResult `json:"warnings"`
	ChecksRun        int               `json:"checksRun"`
	ChecksPassed     int               `json:"checksPassed"`
	BreakerState     BreakerState      `json:"circuitBreakerState"`
	EvaluatedAt      time.Time         `json:"evaluatedAt"`
}

// CheckRecord is the durable trace of one evaluated request, sufficient to
// reconstruct the decision without replaying the original request.
type CheckRecord struct {
	ID           string       `json:"id"`
	MarketID     string       `json:"marketId"`
	Venue        string       `json:"venue"`
	Side         Side         `json:"side"`
	Strategy     string       `json:"strategy"`
	Size         float64      `json:"size"`
	Price        float64      `json:"price"`
	Approved     bool         `json:"approved"`
	Reason       string       `json:"reason,omitempty"`
	FailedIDs    []string     `json:"failedIds"`
	WarningIDs   []string     `json:"warningIds"`
	ChecksRun    int          `json:"checksRun"`
	ChecksPassed int          `json:"checksPassed"`
	BreakerState BreakerState `json:"circuitBreakerState"`
	CreatedAt    time.Time    `json:"createdAt"`
}
