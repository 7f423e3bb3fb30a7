package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfort/riskgovernor/internal/domain"
)

type fakeLimitsService struct {
	limits domain.RiskLimits
	err    error

	lastUpdate domain.RiskLimits
}

func (f *fakeLimitsService) Limits(context.Context) domain.RiskLimits {
	return f.limits
}

func (f *fakeLimitsService) UpdateLimits(_ context.Context, limits domain.RiskLimits) (domain.RiskLimits, error) {
	f.lastUpdate = limits
	if f.err != nil {
		return domain.RiskLimits{}, f.err
	}
	return limits, nil
}

func TestGetLimits(t *testing.T) {
	svc := &fakeLimitsService{limits: domain.DefaultRiskLimits()}
	h := NewLimitsHandler(svc, testLogger())

	r := httptest.NewRequest("GET", "/limits", nil)
	w := httptest.NewRecorder()
	h.Get(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var got domain.RiskLimits
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, svc.limits, got)
}

func TestUpdateLimitsPartialPatch(t *testing.T) {
	svc := &fakeLimitsService{limits: domain.DefaultRiskLimits()}
	h := NewLimitsHandler(svc, testLogger())

	body := `{"maxOrderSize": 2500, "minEquivalenceGrade": "A"}`
	r := httptest.NewRequest("POST", "/limits/update", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Update(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	// Supplied fields change, everything else keeps its current value.
	assert.Equal(t, 2500.0, svc.lastUpdate.MaxOrderSize)
	assert.Equal(t, "A", svc.lastUpdate.MinEquivalence)
	assert.Equal(t, svc.limits.MaxSpread, svc.lastUpdate.MaxSpread)
	assert.Equal(t, svc.limits.MaxDailyLossPct, svc.lastUpdate.MaxDailyLossPct)
}

func TestUpdateLimitsRejectsInvalidSet(t *testing.T) {
	svc := &fakeLimitsService{
		limits: domain.DefaultRiskLimits(),
		err:    fmt.Errorf("%w: max_order_size must be positive", domain.ErrValidation),
	}
	h := NewLimitsHandler(svc, testLogger())

	r := httptest.NewRequest("POST", "/limits/update", strings.NewReader(`{"maxOrderSize": -1}`))
	w := httptest.NewRecorder()
	h.Update(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateLimitsPersistFailure(t *testing.T) {
	svc := &fakeLimitsService{
		limits: domain.DefaultRiskLimits(),
		err:    fmt.Errorf("persist limits: %w: connection refused", domain.ErrDependencyFailed),
	}
	h := NewLimitsHandler(svc, testLogger())

	r := httptest.NewRequest("POST", "/limits/update", strings.NewReader(`{"maxOrderSize": 500}`))
	w := httptest.NewRecorder()
	h.Update(w, r)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
