package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// PortfolioService defines the portfolio operations the handler requires
// from the governor.
type PortfolioService interface {
	UpdatePortfolio(ctx context.Context, snap domain.PortfolioSnapshot) error
	LatestSnapshot(ctx context.Context) (domain.PortfolioSnapshot, error)
}

// PortfolioHandler serves the portfolio snapshot endpoints.
type PortfolioHandler struct {
	gov    PortfolioService
	logger *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler with the given service and
// logger.
func NewPortfolioHandler(gov PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		gov:    gov,
		logger: logHandler(logger, "portfolio"),
	}
}

// Update ingests a portfolio snapshot. Loss and drawdown budgets are checked
// on ingestion and raise alerts when approached or breached.
// POST /portfolio/update
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	var snap domain.PortfolioSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.gov.UpdatePortfolio(r.Context(), snap); err != nil {
		h.logger.ErrorContext(r.Context(), "portfolio update failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to record portfolio snapshot")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// GetSnapshot returns the most recent portfolio snapshot.
// GET /portfolio/snapshot
func (h *PortfolioHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.gov.LatestSnapshot(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to load portfolio snapshot")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
