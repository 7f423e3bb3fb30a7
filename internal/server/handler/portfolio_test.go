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

type fakePortfolioService struct {
	snap domain.PortfolioSnapshot
	err  error

	lastSnap domain.PortfolioSnapshot
}

func (f *fakePortfolioService) UpdatePortfolio(_ context.Context, snap domain.PortfolioSnapshot) error {
	f.lastSnap = snap
	return f.err
}

func (f *fakePortfolioService) LatestSnapshot(context.Context) (domain.PortfolioSnapshot, error) {
	return f.snap, f.err
}

func TestPortfolioUpdate(t *testing.T) {
	svc := &fakePortfolioService{}
	h := NewPortfolioHandler(svc, testLogger())

	body := `{"totalValue": 48000, "dailyPnL": -900, "weeklyPnL": -1500, "maxDrawdown": 4.2, "positionCount": 7}`
	r := httptest.NewRequest("POST", "/portfolio/update", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Update(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 48000.0, svc.lastSnap.TotalValue)
	assert.Equal(t, -900.0, svc.lastSnap.DailyPnL)
	assert.JSONEq(t, `{"status":"recorded"}`, w.Body.String())
}

func TestPortfolioSnapshotNotFound(t *testing.T) {
	svc := &fakePortfolioService{err: fmt.Errorf("no snapshot recorded: %w", domain.ErrNotFound)}
	h := NewPortfolioHandler(svc, testLogger())

	r := httptest.NewRequest("GET", "/portfolio/snapshot", nil)
	w := httptest.NewRecorder()
	h.GetSnapshot(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPortfolioGetLatestSnapshot(t *testing.T) {
	svc := &fakePortfolioService{
		snap: domain.PortfolioSnapshot{TotalValue: 52000, PositionCount: 3},
	}
	h := NewPortfolioHandler(svc, testLogger())

	r := httptest.NewRequest("GET", "/portfolio/snapshot", nil)
	w := httptest.NewRecorder()
	h.GetSnapshot(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var got domain.PortfolioSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 52000.0, got.TotalValue)
	assert.Equal(t, 3, got.PositionCount)
}
