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

type fakeBreakerService struct {
	status domain.BreakerStatus
	err    error

	lastTarget domain.BreakerState
	lastReason string
	lastForce  bool
}

func (f *fakeBreakerService) Status(context.Context) domain.BreakerStatus {
	return f.status
}

func (f *fakeBreakerService) Transition(_ context.Context, target domain.BreakerState, reason string) (domain.BreakerStatus, error) {
	f.lastTarget = target
	f.lastReason = reason
	if f.err != nil {
		return domain.BreakerStatus{}, f.err
	}
	f.status.State = target
	return f.status, nil
}

func (f *fakeBreakerService) Reset(_ context.Context, reason string, force bool) (domain.BreakerStatus, error) {
	f.lastReason = reason
	f.lastForce = force
	if f.err != nil {
		return domain.BreakerStatus{}, f.err
	}
	f.status.State = domain.BreakerNormal
	return f.status, nil
}

func TestBreakerGetStatus(t *testing.T) {
	svc := &fakeBreakerService{
		status: domain.BreakerStatus{
			State:          domain.BreakerCaution,
			AdjustedLimits: domain.DefaultRiskLimits(),
		},
	}
	h := NewBreakerHandler(svc, testLogger())

	r := httptest.NewRequest("GET", "/circuit-breaker/status", nil)
	w := httptest.NewRecorder()
	h.GetStatus(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var got domain.BreakerStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.BreakerCaution, got.State)
}

func TestBreakerTransition(t *testing.T) {
	svc := &fakeBreakerService{}
	h := NewBreakerHandler(svc, testLogger())

	body := `{"targetState":"HALT","reason":"manual kill switch"}`
	r := httptest.NewRequest("POST", "/circuit-breaker/transition", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Transition(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.BreakerHalt, svc.lastTarget)
	assert.Equal(t, "manual kill switch", svc.lastReason)
}

func TestBreakerTransitionDecodesTargetState(t *testing.T) {
	svc := &fakeBreakerService{}
	h := NewBreakerHandler(svc, testLogger())

	body := `{"targetState":"CAUTION","reason":"ops drill"}`
	r := httptest.NewRequest("POST", "/circuit-breaker/transition", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Transition(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.BreakerCaution, svc.lastTarget)
	assert.Equal(t, "ops drill", svc.lastReason)
}

func TestBreakerTransitionRequiresReason(t *testing.T) {
	h := NewBreakerHandler(&fakeBreakerService{}, testLogger())

	r := httptest.NewRequest("POST", "/circuit-breaker/transition", strings.NewReader(`{"targetState":"HALT"}`))
	w := httptest.NewRecorder()
	h.Transition(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBreakerTransitionRejectedIsBadRequest(t *testing.T) {
	svc := &fakeBreakerService{
		err: fmt.Errorf("%w: NORMAL -> RECOVERY", domain.ErrInvalidTransition),
	}
	h := NewBreakerHandler(svc, testLogger())

	body := `{"targetState":"RECOVERY","reason":"skip caution"}`
	r := httptest.NewRequest("POST", "/circuit-breaker/transition", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Transition(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBreakerResetFromHaltNeedsForce(t *testing.T) {
	svc := &fakeBreakerService{
		err: fmt.Errorf("%w: breaker is in HALT", domain.ErrResetRequiresForce),
	}
	h := NewBreakerHandler(svc, testLogger())

	r := httptest.NewRequest("POST", "/circuit-breaker/reset", strings.NewReader(`{"reason":"ops request"}`))
	w := httptest.NewRecorder()
	h.Reset(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, svc.lastForce)
}

func TestBreakerForcedReset(t *testing.T) {
	svc := &fakeBreakerService{status: domain.BreakerStatus{State: domain.BreakerHalt}}
	h := NewBreakerHandler(svc, testLogger())

	r := httptest.NewRequest("POST", "/circuit-breaker/reset", strings.NewReader(`{"reason":"incident resolved","force":true}`))
	w := httptest.NewRecorder()
	h.Reset(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.lastForce)

	var got domain.BreakerStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.BreakerNormal, got.State)
}
