package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfort/riskgovernor/internal/domain"
)

type fakeDriftService struct {
	report     domain.PositionDriftReport
	assessment domain.ModelDriftAssessment
	err        error

	lastExpected []domain.PositionSnapshot
	lastBroker   []domain.PositionSnapshot
	lastVersion  string
	lastCases    []domain.ModelTestCase
}

func (f *fakeDriftService) DetectPositionDrift(_ context.Context, expected, broker []domain.PositionSnapshot) (domain.PositionDriftReport, error) {
	f.lastExpected = expected
	f.lastBroker = broker
	return f.report, f.err
}

func (f *fakeDriftService) AssessModelDrift(_ context.Context, promptVersion, promptType string, cases []domain.ModelTestCase, adversarial []domain.AdversarialCase) (domain.ModelDriftAssessment, error) {
	f.lastVersion = promptVersion
	f.lastCases = cases
	return f.assessment, f.err
}

func TestDetectPositionDrift(t *testing.T) {
	svc := &fakeDriftService{
		report: domain.PositionDriftReport{Verified: true},
	}
	h := NewDriftHandler(svc, testLogger())

	body := `{
		"expectedPositions": [{"marketId":"mkt-1","side":"YES","size":100}],
		"brokerPositions":   [{"marketId":"mkt-1","side":"YES","size":101}]
	}`
	r := httptest.NewRequest("POST", "/detect-position-drift", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.DetectPositionDrift(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.lastExpected, 1)
	require.Len(t, svc.lastBroker, 1)
	assert.Equal(t, 101.0, svc.lastBroker[0].Size)

	var got domain.PositionDriftReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Verified)
}

func TestDetectPositionDriftBadBody(t *testing.T) {
	h := NewDriftHandler(&fakeDriftService{}, testLogger())

	r := httptest.NewRequest("POST", "/detect-position-drift", strings.NewReader(`not json`))
	w := httptest.NewRecorder()
	h.DetectPositionDrift(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssessModelDrift(t *testing.T) {
	svc := &fakeDriftService{
		assessment: domain.ModelDriftAssessment{
			PromptVersion: "v2.3",
			DeployAllowed: true,
		},
	}
	h := NewDriftHandler(svc, testLogger())

	body := `{
		"promptVersion": "v2.3",
		"promptType": "signal",
		"testResults": [{"caseId":"g-1","expected":0.62,"actual":0.60}]
	}`
	r := httptest.NewRequest("POST", "/assess-llm-drift", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.AssessModelDrift(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v2.3", svc.lastVersion)
	require.Len(t, svc.lastCases, 1)
	assert.Equal(t, "g-1", svc.lastCases[0].CaseID)

	var got domain.ModelDriftAssessment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.DeployAllowed)
}
