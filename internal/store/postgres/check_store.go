package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// CheckStore implements domain.CheckStore using PostgreSQL.
type CheckStore struct {
	pool *pgxpool.Pool
}

// NewCheckStore creates a new CheckStore backed by the given connection pool.
func NewCheckStore(pool *pgxpool.Pool) *CheckStore {
	return &CheckStore{pool: pool}
}

// Insert appends one decision record to the ledger.
func (s *CheckStore) Insert(ctx context.Context, rec domain.CheckRecord) error {
	const query = `
		INSERT INTO risk_checks (
			id, market_id, venue, side, strategy, size, price,
			approved, reason, failed_ids, warning_ids,
			checks_run, checks_passed, breaker_state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.MarketID, rec.Venue, string(rec.Side), rec.Strategy,
		rec.Size, rec.Price, rec.Approved, rec.Reason,
		rec.FailedIDs, rec.WarningIDs,
		rec.ChecksRun, rec.ChecksPassed, string(rec.BreakerState), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert risk check %s: %w", rec.ID, err)
	}
	return nil
}

// List returns check records, newest first, with pagination and optional
// time filtering.
func (s *CheckStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.CheckRecord, error) {
	query := `
		SELECT id, market_id, venue, side, strategy, size, price,
		       approved, reason, failed_ids, warning_ids,
		       checks_run, checks_passed, breaker_state, created_at
		FROM risk_checks WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list risk checks: %w", err)
	}
	defer rows.Close()

	return scanCheckRecords(rows)
}

// Count returns the total number of recorded checks and how many of those
// were approved.
func (s *CheckStore) Count(ctx context.Context) (int64, int64, error) {
	const query = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE approved)
		FROM risk_checks`

	var total, approved int64
	if err := s.pool.QueryRow(ctx, query).Scan(&total, &approved); err != nil {
		return 0, 0, fmt.Errorf("postgres: count risk checks: %w", err)
	}
	return total, approved, nil
}

// ListBefore returns all check records older than the given cutoff, oldest
// first, for cold archival.
func (s *CheckStore) ListBefore(ctx context.Context, before time.Time) ([]domain.CheckRecord, error) {
	const query = `
		SELECT id, market_id, venue, side, strategy, size, price,
		       approved, reason, failed_ids, warning_ids,
		       checks_run, checks_passed, breaker_state, created_at
		FROM risk_checks
		WHERE created_at < $1
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list risk checks before %s: %w", before, err)
	}
	defer rows.Close()

	return scanCheckRecords(rows)
}

// DeleteBefore removes check records older than the cutoff and returns how
// many rows were deleted. Callers archive first.
func (s *CheckStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM risk_checks WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete risk checks before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCheckRecords(rows pgxRows) ([]domain.CheckRecord, error) {
	var recs []domain.CheckRecord
	for rows.Next() {
		var (
			rec          domain.CheckRecord
			side, state  string
			failed, warn []string
		)
		if err := rows.Scan(
			&rec.ID, &rec.MarketID, &rec.Venue, &side, &rec.Strategy,
			&rec.Size, &rec.Price, &rec.Approved, &rec.Reason,
			&failed, &warn,
			&rec.ChecksRun, &rec.ChecksPassed, &state, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan risk check: %w", err)
		}
		rec.Side = domain.Side(side)
		rec.BreakerState = domain.BreakerState(state)
		rec.FailedIDs = failed
		rec.WarningIDs = warn
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list risk checks rows: %w", err)
	}
	return recs, nil
}

// Compile-time interface check.
var _ domain.CheckStore = (*CheckStore)(nil)
