package domain

import "time"

// BreakerState is the system-wide trading permission state.
type BreakerState string

const (
	BreakerNormal   BreakerState = "NORMAL"
	BreakerCaution  BreakerState = "CAUTION"
	BreakerHalt     BreakerState = "HALT"
	BreakerRecovery BreakerState = "RECOVERY"
)

// Valid reports whether s is one of the four defined states.
func (s BreakerState) Valid() bool {
	switch s {
	case BreakerNormal, BreakerCaution, BreakerHalt, BreakerRecovery:
		return true
	}
	return false
}

// Rank orders states by restrictiveness, used to decide whether an automatic
// recommendation is a strict escalation. Automatic paths never downgrade.
func (s BreakerState) Rank() int {
	switch s {
	case BreakerNormal:
		return 0
	case BreakerCaution:
		return 1
	case BreakerRecovery:
		return 2
	case BreakerHalt:
		return 3
	}
	return -1
}

// TransitionRecord is one immutable edge in the breaker's history.
type TransitionRecord struct {
	ID        int64        `json:"id,omitempty"`
	From      BreakerState `json:"from"`
	To        BreakerState `json:"to"`
	Reason    string       `json:"reason"`
	Forced    bool         `json:"forced,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// BreakerStatus is the read-only snapshot returned by the status operation.
type BreakerStatus struct {
	State               BreakerState       `json:"state"`
	LastStateChange     time.Time          `json:"lastStateChange"`
	ConsecutiveFailures int                `json:"consecutiveFailures"`
	AdjustedLimits      RiskLimits         `json:"adjustedLimits"`
	RecentTransitions   []TransitionRecord `json:"recentTransitions"`
}
