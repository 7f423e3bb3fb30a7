package domain

import "fmt"

// RiskLimits is the base risk-limit configuration. It is owned by the
// governor and only ever mutated through the limits-update operation; the
// circuit breaker derives state-adjusted copies from it and never writes back.
type RiskLimits struct {
	MaxPositionPct      float64 `json:"maxPositionPct" toml:"max_position_pct"`
	MaxConcentrationPct float64 `json:"maxConcentrationPct" toml:"max_concentration_pct"`
	MaxOrderSize        float64 `json:"maxOrderSize" toml:"max_order_size"`
	MinOrderNotional    float64 `json:"minOrderNotional" toml:"min_order_notional"`
	MaxDailyLossPct     float64 `json:"maxDailyLossPct" toml:"max_daily_loss_pct"`
	MaxWeeklyLossPct    float64 `json:"maxWeeklyLossPct" toml:"max_weekly_loss_pct"`
	MaxDrawdownPct      float64 `json:"maxDrawdownPct" toml:"max_drawdown_pct"`
	MaxSpread           float64 `json:"maxSpread" toml:"max_spread"`
	MinVolume24h        float64 `json:"minVolume24h" toml:"min_volume_24h"`
	MaxVPIN             float64 `json:"maxVpin" toml:"max_vpin"`
	MaxAmbiguity        float64 `json:"maxAmbiguity" toml:"max_ambiguity"`
	MinEquivalence      string  `json:"minEquivalenceGrade" toml:"min_equivalence_grade"`
	MaxCorrelatedPct    float64 `json:"maxCorrelatedPct" toml:"max_correlated_pct"`
	MaxPriceAgeSec      float64 `json:"maxPriceAgeSec" toml:"max_price_age_sec"`
}

// DefaultRiskLimits are the shipped base limits, used when no persisted row
// exists yet.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxPositionPct:      5,
		MaxConcentrationPct: 15,
		MaxOrderSize:        1000,
		MinOrderNotional:    1,
		MaxDailyLossPct:     3,
		MaxWeeklyLossPct:    7,
		MaxDrawdownPct:      15,
		MaxSpread:           0.05,
		MinVolume24h:        10000,
		MaxVPIN:             0.7,
		MaxAmbiguity:        0.4,
		MinEquivalence:      "B",
		MaxCorrelatedPct:    20,
		MaxPriceAgeSec:      300,
	}
}

// Validate rejects limit sets that could never admit a trade or that contain
// negative thresholds.
func (l RiskLimits) Validate() error {
	type bound struct {
		name string
		val  float64
	}
	for _, b := range []bound{
		{"max_position_pct", l.MaxPositionPct},
		{"max_concentration_pct", l.MaxConcentrationPct},
		{"max_order_size", l.MaxOrderSize},
		{"min_order_notional", l.MinOrderNotional},
		{"max_daily_loss_pct", l.MaxDailyLossPct},
		{"max_weekly_loss_pct", l.MaxWeeklyLossPct},
		{"max_drawdown_pct", l.MaxDrawdownPct},
		{"max_spread", l.MaxSpread},
		{"min_volume_24h", l.MinVolume24h},
		{"max_vpin", l.MaxVPIN},
		{"max_ambiguity", l.MaxAmbiguity},
		{"max_correlated_pct", l.MaxCorrelatedPct},
		{"max_price_age_sec", l.MaxPriceAgeSec},
	} {
		if b.val < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrValidation, b.name)
		}
	}
	switch l.MinEquivalence {
	case "", "A", "B", "C", "D":
	default:
		return fmt.Errorf("%w: min_equivalence_grade must be one of A..D", ErrValidation)
	}
	return nil
}
