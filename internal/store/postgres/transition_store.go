package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// TransitionStore implements domain.TransitionStore using PostgreSQL.
type TransitionStore struct {
	pool *pgxpool.Pool
}

// NewTransitionStore creates a new TransitionStore backed by the given pool.
func NewTransitionStore(pool *pgxpool.Pool) *TransitionStore {
	return &TransitionStore{pool: pool}
}

// Insert appends one transition edge to the history.
func (s *TransitionStore) Insert(ctx context.Context, rec domain.TransitionRecord) error {
	const query = `
		INSERT INTO breaker_transitions (from_state, to_state, reason, forced, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		string(rec.From), string(rec.To), rec.Reason, rec.Forced, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert breaker transition: %w", err)
	}
	return nil
}

// ListRecent returns the most recent transitions, newest first.
func (s *TransitionStore) ListRecent(ctx context.Context, limit int) ([]domain.TransitionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	const query = `
		SELECT id, from_state, to_state, reason, forced, created_at
		FROM breaker_transitions
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list breaker transitions: %w", err)
	}
	defer rows.Close()

	var recs []domain.TransitionRecord
	for rows.Next() {
		var (
			rec      domain.TransitionRecord
			from, to string
		)
		if err := rows.Scan(&rec.ID, &from, &to, &rec.Reason, &rec.Forced, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan breaker transition: %w", err)
		}
		rec.From = domain.BreakerState(from)
		rec.To = domain.BreakerState(to)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list breaker transitions rows: %w", err)
	}
	return recs, nil
}

// Latest returns the most recent transition, or domain.ErrNotFound when the
// history is empty.
func (s *TransitionStore) Latest(ctx context.Context) (domain.TransitionRecord, error) {
	const query = `
		SELECT id, from_state, to_state, reason, forced, created_at
		FROM breaker_transitions
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var (
		rec      domain.TransitionRecord
		from, to string
	)
	err := s.pool.QueryRow(ctx, query).Scan(&rec.ID, &from, &to, &rec.Reason, &rec.Forced, &rec.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TransitionRecord{}, domain.ErrNotFound
		}
		return domain.TransitionRecord{}, fmt.Errorf("postgres: latest breaker transition: %w", err)
	}
	rec.From = domain.BreakerState(from)
	rec.To = domain.BreakerState(to)
	return rec, nil
}

// Compile-time interface check.
var _ domain.TransitionStore = (*TransitionStore)(nil)
