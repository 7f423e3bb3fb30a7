package governor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// The check endpoints accept two wire shapes: a nested signal envelope
// emitted by current strategy agents, and the legacy flat shape older
// callers still send. Both normalize here, at the boundary, into
// domain.RiskCheckRequest; nothing downstream branches on which shape
// arrived.

type nestedSignal struct {
	MarketID         string                    `json:"marketId"`
	Venue            string                    `json:"venue"`
	Side             string                    `json:"side"`
	RequestedSize    *float64                  `json:"requestedSize"`
	SuggestedSize    *float64                  `json:"suggestedSize"`
	Price            *float64                  `json:"price"`
	MarketPrice      float64                   `json:"marketPrice"`
	Spread           float64                   `json:"spread"`
	Volume24h        float64                   `json:"volume24h"`
	VPINScore        *float64                  `json:"vpinScore"`
	AmbiguityScore   *float64                  `json:"ambiguityScore"`
	EquivalenceGrade string                    `json:"equivalenceGrade"`
	Category         string                    `json:"category"`
	SettlementDate   *time.Time                `json:"settlementDate"`
	LastPriceUpdate  *time.Time                `json:"lastPriceUpdate"`
	Positions        []domain.ExistingPosition `json:"existingPositions"`
}

type nestedEnvelope struct {
	Signal        *nestedSignal `json:"signal"`
	StrategyType  string        `json:"strategyType"`
	Capital       float64       `json:"capital"`
	DailyPnL      float64       `json:"dailyPnL"`
	WeeklyPnL     float64       `json:"weeklyPnL"`
	MaxDrawdown   float64       `json:"maxDrawdown"`
	SystemHealthy *bool         `json:"systemHealthy"`
}

type legacyFlat struct {
	MarketID          string                    `json:"marketId"`
	Venue             string                    `json:"venue"`
	Side              string                    `json:"side"`
	Size              float64                   `json:"size"`
	Price             float64                   `json:"price"`
	Strategy          string                    `json:"strategy"`
	MarketPrice       float64                   `json:"marketPrice"`
	Spread            float64                   `json:"spread"`
	Volume24h         float64                   `json:"volume24h"`
	VPINScore         *float64                  `json:"vpinScore"`
	AmbiguityScore    *float64                  `json:"ambiguityScore"`
	EquivalenceGrade  string                    `json:"equivalenceGrade"`
	Category          string                    `json:"category"`
	SettlementDate    *time.Time                `json:"settlementDate"`
	LastPriceUpdate   *time.Time                `json:"lastPriceUpdate"`
	PortfolioValue    float64                   `json:"portfolioValue"`
	DailyPnL          float64                   `json:"dailyPnL"`
	WeeklyPnL         float64                   `json:"weeklyPnL"`
	MaxDrawdown       float64                   `json:"maxDrawdown"`
	ExistingPositions []domain.ExistingPosition `json:"existingPositions"`
	CorrelatedMarkets []domain.CorrelatedMarket `json:"correlatedMarkets"`
	SystemHealthy     *bool                     `json:"systemHealthy"`
}

// NormalizeCheckRequest decodes either accepted wire shape into the canonical
// request type. The nested shape is recognized by the presence of a "signal"
// object. Validation failures return domain.ErrValidation before any
// evaluation or state mutation.
func NormalizeCheckRequest(raw []byte) (domain.RiskCheckRequest, error) {
	var probe struct {
		Signal json.RawMessage `json:"signal"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return domain.RiskCheckRequest{}, fmt.Errorf("%w: malformed JSON body: %v", domain.ErrValidation, err)
	}

	var req domain.RiskCheckRequest
	if len(probe.Signal) > 0 && string(probe.Signal) != "null" {
		var env nestedEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return domain.RiskCheckRequest{}, fmt.Errorf("%w: malformed signal envelope: %v", domain.ErrValidation, err)
		}
		req = fromNested(env)
	} else {
		var flat legacyFlat
		if err := json.Unmarshal(raw, &flat); err != nil {
			return domain.RiskCheckRequest{}, fmt.Errorf("%w: malformed request: %v", domain.ErrValidation, err)
		}
		req = fromFlat(flat)
	}

	if err := validateRequest(req); err != nil {
		return domain.RiskCheckRequest{}, err
	}
	return req, nil
}

func fromNested(env nestedEnvelope) domain.RiskCheckRequest {
	s := env.Signal

	size := 0.0
	// requestedSize wins when both sizes are present.
	switch {
	case s.RequestedSize != nil:
		size = *s.RequestedSize
	case s.SuggestedSize != nil:
		size = *s.SuggestedSize
	}

	price := s.MarketPrice
	if s.Price != nil {
		price = *s.Price
	}

	req := domain.RiskCheckRequest{
		MarketID:          s.MarketID,
		Venue:             s.Venue,
		Side:              domain.Side(strings.ToUpper(s.Side)),
		Size:              size,
		Price:             price,
		Strategy:          env.StrategyType,
		MarketPrice:       s.MarketPrice,
		Spread:            s.Spread,
		Volume24h:         s.Volume24h,
		VPINScore:         s.VPINScore,
		AmbiguityScore:    s.AmbiguityScore,
		EquivalenceGrade:  domain.EquivalenceGrade(strings.ToUpper(s.EquivalenceGrade)),
		Category:          s.Category,
		SettlementDate:    s.SettlementDate,
		PortfolioValue:    env.Capital,
		DailyPnL:          env.DailyPnL,
		WeeklyPnL:         env.WeeklyPnL,
		MaxDrawdownPct:    env.MaxDrawdown,
		ExistingPositions: s.Positions,
		SystemHealthy:     boolOrTrue(env.SystemHealthy),
	}
	if s.LastPriceUpdate != nil {
		req.LastPriceUpdate = *s.LastPriceUpdate
	}
	return req
}

func fromFlat(flat legacyFlat) domain.RiskCheckRequest {
	req := domain.RiskCheckRequest{
		MarketID:          flat.MarketID,
		Venue:             flat.Venue,
		Side:              domain.Side(strings.ToUpper(flat.Side)),
		Size:              flat.Size,
		Price:             flat.Price,
		Strategy:          flat.Strategy,
		MarketPrice:       flat.MarketPrice,
		Spread:            flat.Spread,
		Volume24h:         flat.Volume24h,
		VPINScore:         flat.VPINScore,
		AmbiguityScore:    flat.AmbiguityScore,
		EquivalenceGrade:  domain.EquivalenceGrade(strings.ToUpper(flat.EquivalenceGrade)),
		Category:          flat.Category,
		SettlementDate:    flat.SettlementDate,
		PortfolioValue:    flat.PortfolioValue,
		DailyPnL:          flat.DailyPnL,
		WeeklyPnL:         flat.WeeklyPnL,
		MaxDrawdownPct:    flat.MaxDrawdown,
		ExistingPositions: flat.ExistingPositions,
		CorrelatedMarkets: flat.CorrelatedMarkets,
		SystemHealthy:     boolOrTrue(flat.SystemHealthy),
	}
	if flat.LastPriceUpdate != nil {
		req.LastPriceUpdate = *flat.LastPriceUpdate
	}
	return req
}

func validateRequest(req domain.RiskCheckRequest) error {
	if strings.TrimSpace(req.MarketID) == "" {
		return fmt.Errorf("%w: marketId is required", domain.ErrValidation)
	}
	if req.Side != domain.SideYes && req.Side != domain.SideNo {
		return fmt.Errorf("%w: side must be YES or NO, got %q", domain.ErrValidation, req.Side)
	}
	if req.Size <= 0 {
		return fmt.Errorf("%w: size must be positive", domain.ErrValidation)
	}
	if req.Price < 0 || req.Price > 1 {
		return fmt.Errorf("%w: price must be within [0,1]", domain.ErrValidation)
	}
	return nil
}

func boolOrTrue(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}
