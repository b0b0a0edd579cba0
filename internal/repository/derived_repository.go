package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
)

// DerivedRepository provides data access methods for the derived_cache table,
// which memoizes results computed from asset_cache rows. Entries are ephemeral
// and removed by EvictOlderThan.
type DerivedRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewDerivedRepository creates a new DerivedRepository with the provided database connection.
func NewDerivedRepository(db *sql.DB) *DerivedRepository {
	return &DerivedRepository{db: db, now: time.Now}
}

// WithClock returns a copy of the repository that reads time from now.
func (r *DerivedRepository) WithClock(now func() time.Time) *DerivedRepository {
	return &DerivedRepository{db: r.db, now: now}
}

// Put stores data under key, replacing any previous entry.
func (r *DerivedRepository) Put(ctx context.Context, key, assetName string, data []byte) error {
	query := `
		INSERT INTO derived_cache (id, cache_key, asset_name, data, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			data = excluded.data,
			created_at = excluded.created_at
	`
	_, err := r.db.ExecContext(ctx, query, uuid.New().String(), key, assetName, data, toNanos(r.now()))
	if err != nil {
		return fmt.Errorf("failed to write derived_cache %s: %w", key, err)
	}
	return nil
}

// Get returns the payload stored under key.
// Returns apperrors.ErrDerivedEntryNotFound on a miss.
func (r *DerivedRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM derived_cache WHERE cache_key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrDerivedEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read derived_cache %s: %w", key, err)
	}
	return data, nil
}

// EvictOlderThan deletes entries created more than maxAge ago and returns how many were removed.
func (r *DerivedRepository) EvictOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := toNanos(r.now().Add(-maxAge))
	res, err := r.db.ExecContext(ctx, `DELETE FROM derived_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to evict derived_cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count evicted rows: %w", err)
	}
	return n, nil
}

// Count returns the number of stored entries.
func (r *DerivedRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM derived_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count derived_cache: %w", err)
	}
	return n, nil
}
