package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// LimitsService defines the limit operations the handler requires from the
// governor.
type LimitsService interface {
	Limits(ctx context.Context) domain.RiskLimits
	UpdateLimits(ctx context.Context, limits domain.RiskLimits) (domain.RiskLimits, error)
}

// LimitsHandler serves the risk-limit endpoints.
type LimitsHandler struct {
	gov    LimitsService
	logger *slog.Logger
}

// NewLimitsHandler creates a LimitsHandler with the given service and logger.
func NewLimitsHandler(gov LimitsService, logger *slog.Logger) *LimitsHandler {
	return &LimitsHandler{
		gov:    gov,
		logger: logHandler(logger, "limits"),
	}
}

// Get returns the current base limits. These are the configured limits, not
// the breaker-adjusted ones; the adjusted view lives on the breaker status.
// GET /limits
func (h *LimitsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gov.Limits(r.Context()))
}

// limitsPatch carries partial limit updates: only supplied fields change.
type limitsPatch struct {
	MaxPositionPct      *float64 `json:"maxPositionPct"`
	MaxConcentrationPct *float64 `json:"maxConcentrationPct"`
	MaxOrderSize        *float64 `json:"maxOrderSize"`
	MinOrderNotional    *float64 `json:"minOrderNotional"`
	MaxDailyLossPct     *float64 `json:"maxDailyLossPct"`
	MaxWeeklyLossPct    *float64 `json:"maxWeeklyLossPct"`
	MaxDrawdownPct      *float64 `json:"maxDrawdownPct"`
	MaxSpread           *float64 `json:"maxSpread"`
	MinVolume24h        *float64 `json:"minVolume24h"`
	MaxVPIN             *float64 `json:"maxVpin"`
	MaxAmbiguity        *float64 `json:"maxAmbiguity"`
	MinEquivalence      *string  `json:"minEquivalenceGrade"`
	MaxCorrelatedPct    *float64 `json:"maxCorrelatedPct"`
	MaxPriceAgeSec      *float64 `json:"maxPriceAgeSec"`
}

// apply overlays the patch onto a full limit set.
func (p limitsPatch) apply(l domain.RiskLimits) domain.RiskLimits {
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&l.MaxPositionPct, p.MaxPositionPct)
	setF(&l.MaxConcentrationPct, p.MaxConcentrationPct)
	setF(&l.MaxOrderSize, p.MaxOrderSize)
	setF(&l.MinOrderNotional, p.MinOrderNotional)
	setF(&l.MaxDailyLossPct, p.MaxDailyLossPct)
	setF(&l.MaxWeeklyLossPct, p.MaxWeeklyLossPct)
	setF(&l.MaxDrawdownPct, p.MaxDrawdownPct)
	setF(&l.MaxSpread, p.MaxSpread)
	setF(&l.MinVolume24h, p.MinVolume24h)
	setF(&l.MaxVPIN, p.MaxVPIN)
	setF(&l.MaxAmbiguity, p.MaxAmbiguity)
	setF(&l.MaxCorrelatedPct, p.MaxCorrelatedPct)
	setF(&l.MaxPriceAgeSec, p.MaxPriceAgeSec)
	if p.MinEquivalence != nil {
		l.MinEquivalence = *p.MinEquivalence
	}
	return l
}

// Update applies a partial limit update. Unsupplied fields keep their current
// values; the merged set is validated, persisted, and audited before it takes
// effect.
// POST /limits/update
func (h *LimitsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch limitsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	merged := patch.apply(h.gov.Limits(r.Context()))

	updated, err := h.gov.UpdateLimits(r.Context(), merged)
	if err != nil {
		h.logger.WarnContext(r.Context(), "limits update rejected",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to update limits")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
