package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// AlertService defines the alert operations the handler requires from the
// governor.
type AlertService interface {
	RaiseAlert(ctx context.Context, alertType string, severity domain.AlertSeverity, message string) (domain.Alert, error)
	AcknowledgeAlert(ctx context.Context, id string) error
	Alerts(ctx context.Context, opts domain.ListOpts) ([]domain.Alert, error)
}

// AlertHandler serves the alert endpoints.
type AlertHandler struct {
	gov    AlertService
	logger *slog.Logger
}

// NewAlertHandler creates an AlertHandler with the given service and logger.
func NewAlertHandler(gov AlertService, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		gov:    gov,
		logger: logHandler(logger, "alert"),
	}
}

// raiseAlertRequest is the body for raising an alert. Severity defaults to
// critical, matching the endpoint's purpose.
type raiseAlertRequest struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// RaiseCritical records an operator or upstream alert. Critical alerts walk
// the breaker one step up the escalation ladder.
// POST /alert/critical
func (h *AlertHandler) RaiseCritical(w http.ResponseWriter, r *http.Request) {
	var req raiseAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Type == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "type and message are required")
		return
	}

	severity := domain.AlertCritical
	if req.Severity != "" {
		severity = domain.AlertSeverity(req.Severity)
		if severity != domain.AlertCritical && severity != domain.AlertWarning {
			writeError(w, http.StatusBadRequest, "severity must be warning or critical")
			return
		}
	}

	alert, err := h.gov.RaiseAlert(r.Context(), req.Type, severity, req.Message)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "raise alert failed",
			slog.String("type", req.Type),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to raise alert")
		return
	}

	writeJSON(w, http.StatusCreated, alert)
}

// acknowledgeRequest is the body for acknowledging an alert.
type acknowledgeRequest struct {
	ID string `json:"id"`
}

// Acknowledge marks an alert as handled by an operator.
// POST /alert/acknowledge
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.gov.AcknowledgeAlert(r.Context(), req.ID); err != nil {
		writeDomainError(w, err, "failed to acknowledge alert")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "acknowledged": true})
}

// listAlertsResponse wraps the alert list response.
type listAlertsResponse struct {
	Alerts []domain.Alert `json:"alerts"`
}

// List returns alerts, newest first.
// GET /alerts?limit=50&offset=0&since=...&until=...
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.gov.Alerts(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list alerts failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to list alerts")
		return
	}

	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, listAlertsResponse{Alerts: alerts})
}
