package domain

import "time"

// Side is the outcome side of a binary market position.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// EquivalenceGrade ranks how cleanly a market's resolution criteria map onto
// the question a scoring model was asked. "A" is exact, "D" is tenuous.
type EquivalenceGrade string

// ExistingPosition is a caller-reported open position, used to compute
// per-market and per-category exposure.
type ExistingPosition struct {
	MarketID string  `json:"marketId"`
	Side     Side    `json:"side"`
	Size     float64 `json:"size"`
	Price    float64 `json:"price"`
	Category string  `json:"category,omitempty"`
}

// CorrelatedMarket is a single entry from the Event Graph correlation lookup.
type CorrelatedMarket struct {
	MarketID    string  `json:"marketId"`
	Correlation float64 `json:"correlation"`
	Category    string  `json:"category,omitempty"`
}

// RiskCheckRequest is the canonical, fully-normalized form of a trade signal
// submitted for admission control. Two wire shapes (nested signal envelope
// and legacy flat fields) both normalize into this type at the boundary;
// nothing downstream ever sees the original shape.
type RiskCheckRequest struct {
	MarketID string
	Venue    string
	Side     Side
	Size     float64 // contracts
	Price    float64 // limit price, 0..1

	Strategy string

	MarketPrice float64
	Spread      float64
	Volume24h   float64

	// Optional auxiliary scores. Nil means "not supplied"; the related
	// invariants pass vacuously.
	VPINScore        *float64
	AmbiguityScore   *float64
	EquivalenceGrade EquivalenceGrade

	Category        string
	SettlementDate  *time.Time
	LastPriceUpdate time.Time

	PortfolioValue float64
	DailyPnL       float64
	WeeklyPnL      float64
	MaxDrawdownPct float64

	ExistingPositions []ExistingPosition

	// CorrelatedMarkets is populated by the evaluator from the Event Graph
	// unless the caller supplied it directly.
	CorrelatedMarkets []CorrelatedMarket

	SystemHealthy bool
}

// Notional returns the dollar value of the proposed order.
func (r RiskCheckRequest) Notional() float64 {
	return r.Size * r.Price
}

// MarketExposure sums the caller's existing notional in the given market.
func (r RiskCheckRequest) MarketExposure(marketID string) float64 {
	var total float64
	for _, p := range r.ExistingPositions {
		if p.MarketID == marketID {
			total += p.Size * p.Price
		}
	}
	return total
}

// CategoryExposure sums the caller's existing notional in the given category.
func (r RiskCheckRequest) CategoryExposure(category string) float64 {
	var total float64
	for _, p := range r.ExistingPositions {
		if p.Category == category {
			total += p.Size * p.Price
		}
	}
	return total
}
