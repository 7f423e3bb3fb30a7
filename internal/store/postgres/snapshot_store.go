package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a new SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Insert appends a portfolio snapshot.
func (s *SnapshotStore) Insert(ctx context.Context, snap domain.PortfolioSnapshot) error {
	const query = `
		INSERT INTO portfolio_snapshots (total_value, daily_pnl, weekly_pnl, max_drawdown_pct, position_count, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		snap.TotalValue, snap.DailyPnL, snap.WeeklyPnL,
		snap.MaxDrawdownPct, snap.PositionCount, snap.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert portfolio snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot, or domain.ErrNotFound when no
// snapshot has been recorded yet.
func (s *SnapshotStore) Latest(ctx context.Context) (domain.PortfolioSnapshot, error) {
	const query = `
		SELECT total_value, daily_pnl, weekly_pnl, max_drawdown_pct, position_count, observed_at
		FROM portfolio_snapshots
		ORDER BY observed_at DESC, id DESC
		LIMIT 1`

	var snap domain.PortfolioSnapshot
	err := s.pool.QueryRow(ctx, query).Scan(
		&snap.TotalValue, &snap.DailyPnL, &snap.WeeklyPnL,
		&snap.MaxDrawdownPct, &snap.PositionCount, &snap.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PortfolioSnapshot{}, domain.ErrNotFound
		}
		return domain.PortfolioSnapshot{}, fmt.Errorf("postgres: latest portfolio snapshot: %w", err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
