package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfort/riskgovernor/internal/domain"
	"github.com/quantfort/riskgovernor/internal/governor"
)

type fakeHistoryService struct {
	checks  []domain.CheckRecord
	summary governor.AggregateStatus
	err     error

	lastOpts domain.ListOpts
}

func (f *fakeHistoryService) History(_ context.Context, opts domain.ListOpts) ([]domain.CheckRecord, error) {
	f.lastOpts = opts
	return f.checks, f.err
}

func (f *fakeHistoryService) StatusSummary(context.Context) (governor.AggregateStatus, error) {
	return f.summary, f.err
}

func TestHistoryListPassesPagination(t *testing.T) {
	svc := &fakeHistoryService{
		checks: []domain.CheckRecord{{ID: "chk-1", Approved: true}},
	}
	h := NewHistoryHandler(svc, testLogger())

	r := httptest.NewRequest("GET", "/history?limit=10&offset=5", nil)
	w := httptest.NewRecorder()
	h.List(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, svc.lastOpts.Limit)
	assert.Equal(t, 5, svc.lastOpts.Offset)

	var got struct {
		Checks []domain.CheckRecord `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Checks, 1)
	assert.Equal(t, "chk-1", got.Checks[0].ID)
}

func TestHistoryEmptyIsArray(t *testing.T) {
	h := NewHistoryHandler(&fakeHistoryService{}, testLogger())

	r := httptest.NewRequest("GET", "/history", nil)
	w := httptest.NewRecorder()
	h.List(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"checks":[]`)
}

func TestStatusSummary(t *testing.T) {
	svc := &fakeHistoryService{
		summary: governor.AggregateStatus{
			BreakerState:   domain.BreakerNormal,
			ChecksTotal:    200,
			ChecksApproved: 150,
			ApprovalRate:   0.75,
		},
	}
	h := NewHistoryHandler(svc, testLogger())

	r := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	h.GetStatus(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var got governor.AggregateStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.BreakerNormal, got.BreakerState)
	assert.Equal(t, 0.75, got.ApprovalRate)
}
