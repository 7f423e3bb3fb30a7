package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// LimitsStore implements domain.LimitsStore using a single JSONB row, so
// administrative limit updates survive restarts.
type LimitsStore struct {
	pool *pgxpool.Pool
}

// NewLimitsStore creates a new LimitsStore backed by the given pool.
func NewLimitsStore(pool *pgxpool.Pool) *LimitsStore {
	return &LimitsStore{pool: pool}
}

// Get returns the persisted base limits, or domain.ErrNotFound when no
// limits have been stored yet.
func (s *LimitsStore) Get(ctx context.Context) (domain.RiskLimits, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT limits FROM risk_limits WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RiskLimits{}, domain.ErrNotFound
		}
		return domain.RiskLimits{}, fmt.Errorf("postgres: get risk limits: %w", err)
	}

	var limits domain.RiskLimits
	if err := json.Unmarshal(data, &limits); err != nil {
		return domain.RiskLimits{}, fmt.Errorf("postgres: unmarshal risk limits: %w", err)
	}
	return limits, nil
}

// Put upserts the base limits row.
func (s *LimitsStore) Put(ctx context.Context, limits domain.RiskLimits) error {
	data, err := json.Marshal(limits)
	if err != nil {
		return fmt.Errorf("postgres: marshal risk limits: %w", err)
	}

	const query = `
		INSERT INTO risk_limits (id, limits, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET limits = EXCLUDED.limits, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, data); err != nil {
		return fmt.Errorf("postgres: put risk limits: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.LimitsStore = (*LimitsStore)(nil)
