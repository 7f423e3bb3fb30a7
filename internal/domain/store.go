package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// CheckStore persists the append-only risk-check history.
type CheckStore interface {
	Insert(ctx context.Context, rec CheckRecord) error
	List(ctx context.Context, opts ListOpts) ([]CheckRecord, error)
	Count(ctx context.Context) (total int64, approved int64, err error)
	// ListBefore and DeleteBefore support cold archival of aged history.
	ListBefore(ctx context.Context, before time.Time) ([]CheckRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// TransitionStore persists the append-only breaker transition history.
type TransitionStore interface {
	Insert(ctx context.Context, rec TransitionRecord) error
	ListRecent(ctx context.Context, limit int) ([]TransitionRecord, error)
	// Latest returns the most recent transition, or ErrNotFound when the
	// history is empty. Used to restore breaker state across restarts.
	Latest(ctx context.Context) (TransitionRecord, error)
}

// AlertStore persists alerts. Append-only except the acknowledged flag.
type AlertStore interface {
	Insert(ctx context.Context, alert Alert) error
	Acknowledge(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOpts) ([]Alert, error)
	CountUnacknowledged(ctx context.Context) (int64, error)
}

// SnapshotStore persists portfolio snapshots.
type SnapshotStore interface {
	Insert(ctx context.Context, snap PortfolioSnapshot) error
	Latest(ctx context.Context) (PortfolioSnapshot, error)
}

// LimitsStore persists the base risk limits so administrative updates
// survive restarts.
type LimitsStore interface {
	Get(ctx context.Context) (RiskLimits, error)
	Put(ctx context.Context, limits RiskLimits) error
}

// AuditStore is the append-only audit ledger. Every breaker mutation and
// every decision appends here before the caller is acknowledged.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"createdAt"`
}

// EventGraph looks up markets statistically correlated with the given one.
// Implementations are best-effort: this is the system's only sanctioned
// fail-open dependency.
type EventGraph interface {
	CorrelatedMarkets(ctx context.Context, marketID string) ([]CorrelatedMarket, error)
}

// CorrelationCache fronts the Event Graph with a short-TTL cache.
type CorrelationCache interface {
	Get(ctx context.Context, marketID string) ([]CorrelatedMarket, error)
	Set(ctx context.Context, marketID string, markets []CorrelatedMarket, ttl time.Duration) error
}

// BlobWriter uploads immutable objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// RateLimiter limits request rates per key over a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
