package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/quantfort/riskgovernor/internal/domain"
	"github.com/quantfort/riskgovernor/internal/governor"
)

// HistoryService defines the ledger read operations the handler requires
// from the governor.
type HistoryService interface {
	History(ctx context.Context, opts domain.ListOpts) ([]domain.CheckRecord, error)
	StatusSummary(ctx context.Context) (governor.AggregateStatus, error)
}

// HistoryHandler serves the decision-history and aggregate-status endpoints.
type HistoryHandler struct {
	gov    HistoryService
	logger *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler with the given service and
// logger.
func NewHistoryHandler(gov HistoryService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		gov:    gov,
		logger: logHandler(logger, "history"),
	}
}

// historyResponse wraps the decision-history list.
type historyResponse struct {
	Checks []domain.CheckRecord `json:"checks"`
}

// List returns recorded decisions, newest first.
// GET /history?limit=50&offset=0&since=...&until=...
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	checks, err := h.gov.History(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list history failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to list history")
		return
	}

	if checks == nil {
		checks = []domain.CheckRecord{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Checks: checks})
}

// GetStatus returns the aggregate monitoring view: breaker state, approval
// rate, and the unacknowledged alert count.
// GET /status
func (h *HistoryHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := h.gov.StatusSummary(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "status summary failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to compute status")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
