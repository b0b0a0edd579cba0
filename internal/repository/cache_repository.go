package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// CacheRepository provides data access methods for the asset_cache table.
// Each row holds one asset's full closing-price series; writes replace the
// row wholesale so readers see either the old or the new series, never a mix.
type CacheRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCacheRepository creates a new CacheRepository with the provided database connection.
func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db, now: time.Now}
}

// WithClock returns a copy of the repository that reads time from now.
func (r *CacheRepository) WithClock(now func() time.Time) *CacheRepository {
	return &CacheRepository{db: r.db, now: now}
}

// seriesBlob is the columnar msgpack encoding of a closing-price series.
type seriesBlob struct {
	Dates  []string  `msgpack:"d"`
	Closes []float64 `msgpack:"c"`
}

func encodeSeries(prices []model.PricePoint) ([]byte, error) {
	blob := seriesBlob{
		Dates:  make([]string, len(prices)),
		Closes: make([]float64, len(prices)),
	}
	for i, p := range prices {
		blob.Dates[i] = p.Date.UTC().Format(model.DateLayout)
		blob.Closes[i] = p.Close
	}
	return msgpack.Marshal(&blob)
}

func decodeSeries(data []byte) ([]model.PricePoint, error) {
	var blob seriesBlob
	if err := msgpack.Unmarshal(data, &blob); err != nil {
		return nil, err
	}
	if len(blob.Dates) != len(blob.Closes) {
		return nil, fmt.Errorf("series has %d dates but %d closes", len(blob.Dates), len(blob.Closes))
	}
	prices := make([]model.PricePoint, len(blob.Dates))
	for i := range blob.Dates {
		d, err := ParseDate(blob.Dates[i])
		if err != nil {
			return nil, err
		}
		prices[i] = model.PricePoint{Date: d, Close: blob.Closes[i]}
	}
	return prices, nil
}

// Put stores rec, replacing any previous record for the same asset.
// fetched_at never moves backwards: a write carrying an older timestamp keeps the newer one.
func (r *CacheRepository) Put(ctx context.Context, rec model.AssetCacheRecord) error {
	series, err := encodeSeries(rec.ClosingPrices)
	if err != nil {
		return fmt.Errorf("failed to encode series for %s: %w", rec.AssetName, err)
	}

	var startDate, endDate sql.NullString
	if len(rec.ClosingPrices) > 0 {
		startDate = sql.NullString{String: rec.DateRange.Start.Format(model.DateLayout), Valid: true}
		endDate = sql.NullString{String: rec.DateRange.End.Format(model.DateLayout), Valid: true}
	}

	query := `
		INSERT INTO asset_cache (asset_name, ticker, source, series, row_count, start_date, end_date, fetched_at, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_name) DO UPDATE SET
			ticker = excluded.ticker,
			source = excluded.source,
			series = excluded.series,
			row_count = excluded.row_count,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			fetched_at = MAX(asset_cache.fetched_at, excluded.fetched_at),
			schema_version = excluded.schema_version
	`

	_, err = r.db.ExecContext(ctx, query,
		rec.AssetName,
		rec.Ticker,
		string(rec.Source),
		series,
		len(rec.ClosingPrices),
		startDate,
		endDate,
		toNanos(rec.FetchedAt),
		rec.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to write asset_cache for %s: %w", rec.AssetName, err)
	}
	return nil
}

// Get returns the cached record for assetName.
// Returns apperrors.ErrCacheRecordNotFound when no current-schema record exists.
func (r *CacheRepository) Get(ctx context.Context, assetName string) (*model.AssetCacheRecord, error) {
	query := `
		SELECT asset_name, ticker, source, series, fetched_at, schema_version
		FROM asset_cache
		WHERE asset_name = ?
	`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, assetName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrCacheRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read asset_cache for %s: %w", assetName, err)
	}
	if rec.SchemaVersion != model.CacheSchemaVersion {
		return nil, apperrors.ErrCacheRecordNotFound
	}
	return rec, nil
}

// GetAll returns every current-schema record keyed by asset name.
func (r *CacheRepository) GetAll(ctx context.Context) (map[string]model.AssetCacheRecord, error) {
	query := `
		SELECT asset_name, ticker, source, series, fetched_at, schema_version
		FROM asset_cache
		WHERE schema_version = ?
	`

	rows, err := r.db.QueryContext(ctx, query, model.CacheSchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset_cache: %w", err)
	}
	defer rows.Close()

	records := make(map[string]model.AssetCacheRecord)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset_cache results: %w", err)
		}
		records[rec.AssetName] = *rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset_cache: %w", err)
	}
	return records, nil
}

// IsFresh reports whether a record exists and is younger than maxAge.
func (r *CacheRepository) IsFresh(ctx context.Context, assetName string, maxAge time.Duration) (bool, error) {
	var fetchedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM asset_cache WHERE asset_name = ? AND schema_version = ?`,
		assetName, model.CacheSchemaVersion,
	).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read fetched_at for %s: %w", assetName, err)
	}
	return r.now().Sub(fromNanos(fetchedAt)) < maxAge, nil
}

// EvictOlderThan removes derived entries older than maxAge. Raw asset records are
// never evicted; they are refreshed through the freshness check instead.
func (r *CacheRepository) EvictOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	return NewDerivedRepository(r.db).WithClock(r.now).EvictOlderThan(ctx, maxAge)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.AssetCacheRecord, error) {
	var (
		rec       model.AssetCacheRecord
		source    string
		series    []byte
		fetchedAt int64
	)
	if err := row.Scan(&rec.AssetName, &rec.Ticker, &source, &series, &fetchedAt, &rec.SchemaVersion); err != nil {
		return nil, err
	}

	prices, err := decodeSeries(series)
	if err != nil {
		return nil, fmt.Errorf("failed to decode series for %s: %w", rec.AssetName, err)
	}

	built := model.NewAssetCacheRecord(rec.AssetName, rec.Ticker, model.Source(source), prices, fromNanos(fetchedAt))
	built.SchemaVersion = rec.SchemaVersion
	return &built, nil
}
