package governor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// In-memory store fakes backing the governor tests. All are single-test
// scoped and need no locking beyond the governor's own serialization.

type memChecks struct {
	records []domain.CheckRecord
	failing bool
}

func (m *memChecks) Insert(_ context.Context, rec domain.CheckRecord) error {
	if m.failing {
		return errors.New("ledger down")
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memChecks) List(_ context.Context, opts domain.ListOpts) ([]domain.CheckRecord, error) {
	out := make([]domain.CheckRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memChecks) Count(context.Context) (int64, int64, error) {
	var approved int64
	for _, r := range m.records {
		if r.Approved {
			approved++
		}
	}
	return int64(len(m.records)), approved, nil
}

func (m *memChecks) ListBefore(_ context.Context, before time.Time) ([]domain.CheckRecord, error) {
	var out []domain.CheckRecord
	for _, r := range m.records {
		if r.CreatedAt.Before(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memChecks) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	kept := m.records[:0]
	var n int64
	for _, r := range m.records {
		if r.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return n, nil
}

type memTransitions struct {
	records []domain.TransitionRecord
}

func (m *memTransitions) Insert(_ context.Context, rec domain.TransitionRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memTransitions) ListRecent(_ context.Context, limit int) ([]domain.TransitionRecord, error) {
	n := len(m.records)
	if limit > n {
		limit = n
	}
	out := make([]domain.TransitionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memTransitions) Latest(context.Context) (domain.TransitionRecord, error) {
	if len(m.records) == 0 {
		return domain.TransitionRecord{}, domain.ErrNotFound
	}
	return m.records[len(m.records)-1], nil
}

type memAlerts struct {
	alerts []domain.Alert
}

func (m *memAlerts) Insert(_ context.Context, alert domain.Alert) error {
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *memAlerts) Acknowledge(_ context.Context, id string) error {
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Acknowledged = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memAlerts) List(_ context.Context, opts domain.ListOpts) ([]domain.Alert, error) {
	out := make([]domain.Alert, len(m.alerts))
	copy(out, m.alerts)
	return out, nil
}

func (m *memAlerts) CountUnacknowledged(context.Context) (int64, error) {
	var n int64
	for _, a := range m.alerts {
		if !a.Acknowledged {
			n++
		}
	}
	return n, nil
}

type memSnapshots struct {
	snaps []domain.PortfolioSnapshot
}

func (m *memSnapshots) Insert(_ context.Context, snap domain.PortfolioSnapshot) error {
	m.snaps = append(m.snaps, snap)
	return nil
}

func (m *memSnapshots) Latest(context.Context) (domain.PortfolioSnapshot, error) {
	if len(m.snaps) == 0 {
		return domain.PortfolioSnapshot{}, domain.ErrNotFound
	}
	return m.snaps[len(m.snaps)-1], nil
}

type memLimits struct {
	limits *domain.RiskLimits
}

func (m *memLimits) Get(context.Context) (domain.RiskLimits, error) {
	if m.limits == nil {
		return domain.RiskLimits{}, domain.ErrNotFound
	}
	return *m.limits, nil
}

func (m *memLimits) Put(_ context.Context, limits domain.RiskLimits) error {
	m.limits = &limits
	return nil
}

type memAudit struct {
	entries []domain.AuditEntry
	failing bool
}

func (m *memAudit) Log(_ context.Context, event string, detail map[string]any) error {
	if m.failing {
		return errors.New("audit ledger down")
	}
	m.entries = append(m.entries, domain.AuditEntry{
		ID:        int64(len(m.entries) + 1),
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *memAudit) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	out := make([]domain.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

type fakeEventGraph struct {
	markets []domain.CorrelatedMarket
	err     error
	calls   int
}

func (f *fakeEventGraph) CorrelatedMarkets(context.Context, string) ([]domain.CorrelatedMarket, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.markets, nil
}

// testDeps holds the fakes so individual tests can inspect them.
type testDeps struct {
	checks      *memChecks
	transitions *memTransitions
	alerts      *memAlerts
	snapshots   *memSnapshots
	limits      *memLimits
	audit       *memAudit
	graph       *fakeEventGraph
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGovernor(t *testing.T, cfg Config) (*Governor, *testDeps) {
	t.Helper()
	d := &testDeps{
		checks:      &memChecks{},
		transitions: &memTransitions{},
		alerts:      &memAlerts{},
		snapshots:   &memSnapshots{},
		limits:      &memLimits{},
		audit:       &memAudit{},
		graph:       &fakeEventGraph{},
	}
	g := New(cfg, Deps{
		Checks:      d.checks,
		Transitions: d.transitions,
		Alerts:      d.alerts,
		Snapshots:   d.snapshots,
		LimitsStore: d.limits,
		Audit:       d.audit,
		EventGraph:  d.graph,
	}, domain.DefaultRiskLimits(), testLogger())
	return g, d
}

// healthyRequest returns a request that passes the full battery under the
// default limits in NORMAL state.
func healthyRequest() domain.RiskCheckRequest {
	return domain.RiskCheckRequest{
		MarketID:        "mkt-aaa",
		Venue:           "predictit",
		Side:            domain.SideYes,
		Size:            100,
		Price:           0.45,
		Strategy:        "kelly",
		MarketPrice:     0.45,
		Spread:          0.01,
		Volume24h:       50000,
		Category:        "politics",
		LastPriceUpdate: time.Now().UTC(),
		PortfolioValue:  100000,
		DailyPnL:        120,
		WeeklyPnL:       340,
		MaxDrawdownPct:  2,
		SystemHealthy:   true,
	}
}
