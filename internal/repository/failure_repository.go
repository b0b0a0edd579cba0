package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// FailureRepository provides data access methods for the source_failure table.
// It tracks attempts and cooldowns per asset and per upstream source.
type FailureRepository struct {
	db          *sql.DB
	maxAttempts int
}

// NewFailureRepository creates a new FailureRepository. A source is marked failed
// once its attempt count reaches maxAttempts.
func NewFailureRepository(db *sql.DB, maxAttempts int) *FailureRepository {
	return &FailureRepository{db: db, maxAttempts: maxAttempts}
}

// MaxAttempts returns the attempt count at which a source is marked failed.
func (r *FailureRepository) MaxAttempts() int {
	return r.maxAttempts
}

// RecordFailure upserts the sub-state for (assetName, src). Failed is derived
// from state.Attempts; any Failed value passed in is ignored.
func (r *FailureRepository) RecordFailure(ctx context.Context, assetName string, src model.Source, state model.SourceState) error {
	query := `
		INSERT INTO source_failure (asset_name, source, attempts, last_attempt_at, failed, last_error, cooldown_until)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_name, source) DO UPDATE SET
			attempts = excluded.attempts,
			last_attempt_at = excluded.last_attempt_at,
			failed = excluded.failed,
			last_error = excluded.last_error,
			cooldown_until = excluded.cooldown_until
	`

	_, err := r.db.ExecContext(ctx, query,
		assetName,
		string(src),
		state.Attempts,
		toNanos(state.LastAttemptAt),
		state.Attempts >= r.maxAttempts,
		state.LastError,
		nullableNanos(state.CooldownUntil),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s failure for %s: %w", src, assetName, err)
	}
	return nil
}

// RecordSuccess removes all tracked state for the asset. A successful fetch from
// either source makes the series fresh, so both sub-states are discarded.
func (r *FailureRepository) RecordSuccess(ctx context.Context, assetName string) error {
	return r.Clear(ctx, assetName)
}

// Clear removes all tracked state for the asset.
func (r *FailureRepository) Clear(ctx context.Context, assetName string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM source_failure WHERE asset_name = ?`, assetName); err != nil {
		return fmt.Errorf("failed to clear failure state for %s: %w", assetName, err)
	}
	return nil
}

// Get returns the failure state for the asset.
// Returns apperrors.ErrFailureStateNotFound when nothing is tracked.
func (r *FailureRepository) Get(ctx context.Context, assetName string) (*model.SourceFailureState, error) {
	all, err := r.query(ctx, `WHERE asset_name = ?`, assetName)
	if err != nil {
		return nil, err
	}
	state, ok := all[assetName]
	if !ok {
		return nil, apperrors.ErrFailureStateNotFound
	}
	return state, nil
}

// GetAll returns the failure state of every tracked asset.
func (r *FailureRepository) GetAll(ctx context.Context) (map[string]*model.SourceFailureState, error) {
	return r.query(ctx, "")
}

// IsInCooldown reports whether src is failed and cooling down for the asset at now.
func (r *FailureRepository) IsInCooldown(ctx context.Context, assetName string, src model.Source, now time.Time) (bool, error) {
	var (
		failed        bool
		cooldownUntil sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT failed, cooldown_until FROM source_failure WHERE asset_name = ? AND source = ?`,
		assetName, string(src),
	).Scan(&failed, &cooldownUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cooldown for %s/%s: %w", assetName, src, err)
	}
	if !failed || !cooldownUntil.Valid {
		return false, nil
	}
	return now.Before(fromNanos(cooldownUntil.Int64)), nil
}

func (r *FailureRepository) query(ctx context.Context, where string, args ...any) (map[string]*model.SourceFailureState, error) {
	//#nosec G202 -- Safe: where clause is a constant chosen by the caller, values are bound
	query := `
		SELECT asset_name, source, attempts, last_attempt_at, failed, last_error, cooldown_until
		FROM source_failure ` + where + `
		ORDER BY asset_name, source
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query source_failure: %w", err)
	}
	defer rows.Close()

	states := make(map[string]*model.SourceFailureState)
	for rows.Next() {
		var (
			assetName     string
			source        string
			lastAttempt   int64
			cooldownUntil sql.NullInt64
			s             model.SourceState
		)
		if err := rows.Scan(&assetName, &source, &s.Attempts, &lastAttempt, &s.Failed, &s.LastError, &cooldownUntil); err != nil {
			return nil, fmt.Errorf("failed to scan source_failure results: %w", err)
		}
		s.LastAttemptAt = fromNanos(lastAttempt)
		s.CooldownUntil = fromNullableNanos(cooldownUntil)

		state, ok := states[assetName]
		if !ok {
			state = &model.SourceFailureState{AssetName: assetName}
			states[assetName] = state
		}
		switch model.Source(source) {
		case model.SourcePrimary:
			state.Primary = &s
		case model.SourceSecondary:
			state.Secondary = &s
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source_failure: %w", err)
	}
	return states, nil
}
