package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// BreakerService defines the circuit-breaker operations the handler requires
// from the governor.
type BreakerService interface {
	Status(ctx context.Context) domain.BreakerStatus
	Transition(ctx context.Context, target domain.BreakerState, reason string) (domain.BreakerStatus, error)
	Reset(ctx context.Context, reason string, force bool) (domain.BreakerStatus, error)
}

// BreakerHandler serves the circuit-breaker endpoints.
type BreakerHandler struct {
	gov    BreakerService
	logger *slog.Logger
}

// NewBreakerHandler creates a BreakerHandler with the given service and logger.
func NewBreakerHandler(gov BreakerService, logger *slog.Logger) *BreakerHandler {
	return &BreakerHandler{
		gov:    gov,
		logger: logHandler(logger, "breaker"),
	}
}

// GetStatus returns the current breaker state, adjusted limits, and the most
// recent transitions.
// GET /circuit-breaker/status
func (h *BreakerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gov.Status(r.Context()))
}

// transitionRequest is the body for a privileged state transition.
type transitionRequest struct {
	TargetState string `json:"targetState"`
	Reason      string `json:"reason"`
}

// Transition requests a breaker state change. Transitions not present in the
// state table are rejected with 400 and leave the breaker untouched.
// POST /circuit-breaker/transition
func (h *BreakerHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	status, err := h.gov.Transition(r.Context(), domain.BreakerState(req.TargetState), req.Reason)
	if err != nil {
		h.logger.WarnContext(r.Context(), "transition rejected",
			slog.String("target", req.TargetState),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "transition failed")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// resetRequest is the body for a breaker reset.
type resetRequest struct {
	Reason string `json:"reason"`
	Force  bool   `json:"force"`
}

// Reset returns the breaker to NORMAL. Resetting out of HALT requires the
// force flag; without it the request is rejected.
// POST /circuit-breaker/reset
func (h *BreakerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	status, err := h.gov.Reset(r.Context(), req.Reason, req.Force)
	if err != nil {
		h.logger.WarnContext(r.Context(), "reset rejected",
			slog.Bool("force", req.Force),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "reset failed")
		return
	}

	writeJSON(w, http.StatusOK, status)
}
