package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/quantfort/riskgovernor/internal/domain"
	"github.com/quantfort/riskgovernor/internal/governor"
)

// maxCheckBody bounds the request body for admission checks.
const maxCheckBody = 1 << 20

// CheckService defines the admission operations the check handler requires
// from the governor.
type CheckService interface {
	CheckSignal(ctx context.Context, req domain.RiskCheckRequest) (domain.CheckDecision, error)
	CheckInvariants(ctx context.Context, req domain.RiskCheckRequest) (domain.CheckDecision, []domain.InvariantResult, error)
}

// CheckHandler serves the admission-control endpoints.
type CheckHandler struct {
	gov    CheckService
	logger *slog.Logger
}

// NewCheckHandler creates a CheckHandler with the given service and logger.
func NewCheckHandler(gov CheckService, logger *slog.Logger) *CheckHandler {
	return &CheckHandler{
		gov:    gov,
		logger: logHandler(logger, "check"),
	}
}

// CheckSignal evaluates a trade request against the full invariant battery
// and records the decision. Both approvals and blocks return 200; only
// malformed requests and evaluator failures are errors.
// POST /check-signal
func (h *CheckHandler) CheckSignal(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	decision, err := h.gov.CheckSignal(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "check signal failed",
			slog.String("market_id", req.MarketID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "risk check failed")
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// checkInvariantsResponse carries the dry-run decision plus every individual
// rule outcome.
type checkInvariantsResponse struct {
	domain.CheckDecision
	Results []domain.InvariantResult `json:"results"`
}

// CheckInvariants runs the battery without recording anything: no history
// row, no counter movement, no state change.
// POST /check-invariants
func (h *CheckHandler) CheckInvariants(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	decision, results, err := h.gov.CheckInvariants(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "check invariants failed",
			slog.String("market_id", req.MarketID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "invariant check failed")
		return
	}

	writeJSON(w, http.StatusOK, checkInvariantsResponse{
		CheckDecision: decision,
		Results:       results,
	})
}

// readRequest reads and normalizes the request body into the canonical
// check-request shape, handling both supported wire formats.
func (h *CheckHandler) readRequest(w http.ResponseWriter, r *http.Request) (domain.RiskCheckRequest, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCheckBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return domain.RiskCheckRequest{}, false
	}

	req, err := governor.NormalizeCheckRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.RiskCheckRequest{}, false
	}
	return req, true
}
