package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// DriftService defines the drift operations the handler requires from the
// governor.
type DriftService interface {
	DetectPositionDrift(ctx context.Context, expected, broker []domain.PositionSnapshot) (domain.PositionDriftReport, error)
	AssessModelDrift(ctx context.Context, promptVersion, promptType string, cases []domain.ModelTestCase, adversarial []domain.AdversarialCase) (domain.ModelDriftAssessment, error)
}

// DriftHandler serves the position-drift and model-drift endpoints.
type DriftHandler struct {
	gov    DriftService
	logger *slog.Logger
}

// NewDriftHandler creates a DriftHandler with the given service and logger.
func NewDriftHandler(gov DriftService, logger *slog.Logger) *DriftHandler {
	return &DriftHandler{
		gov:    gov,
		logger: logHandler(logger, "drift"),
	}
}

// positionDriftRequest carries both books for reconciliation.
type positionDriftRequest struct {
	ExpectedPositions []domain.PositionSnapshot `json:"expectedPositions"`
	BrokerPositions   []domain.PositionSnapshot `json:"brokerPositions"`
}

// DetectPositionDrift reconciles the expected book against the broker's and
// escalates the breaker when divergence crosses the configured tiers.
// POST /detect-position-drift
func (h *DriftHandler) DetectPositionDrift(w http.ResponseWriter, r *http.Request) {
	var req positionDriftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report, err := h.gov.DetectPositionDrift(r.Context(), req.ExpectedPositions, req.BrokerPositions)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "position drift detection failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "position drift detection failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// modelDriftRequest carries a candidate version's gold-set results and
// adversarial probes.
type modelDriftRequest struct {
	PromptVersion      string                   `json:"promptVersion"`
	PromptType         string                   `json:"promptType"`
	TestResults        []domain.ModelTestCase   `json:"testResults"`
	AdversarialResults []domain.AdversarialCase `json:"adversarialResults"`
}

// AssessModelDrift certifies a candidate model/prompt version against the
// gold set and blocks deployment on regression.
// POST /assess-llm-drift
func (h *DriftHandler) AssessModelDrift(w http.ResponseWriter, r *http.Request) {
	var req modelDriftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	assessment, err := h.gov.AssessModelDrift(r.Context(), req.PromptVersion, req.PromptType, req.TestResults, req.AdversarialResults)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "model drift assessment failed",
			slog.String("prompt_version", req.PromptVersion),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "model drift assessment failed")
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}
