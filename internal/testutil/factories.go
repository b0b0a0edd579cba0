package testutil

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/assets"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/repository"
)

// SeriesFromCloses builds a daily series starting at start, one point per close.
//
// Example usage:
//
//	prices := testutil.SeriesFromCloses(testutil.Date("2024-01-01"), 100, 101, 99)
func SeriesFromCloses(start time.Time, closes ...float64) []model.PricePoint {
	out := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = model.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

// Points builds an ascending series from a date -> close map.
//
// Example usage:
//
//	prices := testutil.Points(map[string]float64{"2024-01-01": 100, "2024-01-05": 110})
func Points(byDate map[string]float64) []model.PricePoint {
	out := make([]model.PricePoint, 0, len(byDate))
	for d, c := range byDate {
		out = append(out, model.PricePoint{Date: Date(d), Close: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// CacheRecordBuilder provides a fluent interface for creating cached series.
//
// Example usage:
//
//	// Simple creation with defaults
//	rec := testutil.NewCacheRecord("sp500").Build(t, db)
//
//	// Customized record
//	rec := testutil.NewCacheRecord("vix").
//	    WithTicker("^VIX").
//	    WithPrices(testutil.SeriesFromCloses(start, 13, 14)).
//	    FetchedAt(now.Add(-48 * time.Hour)).
//	    Build(t, db)
type CacheRecordBuilder struct {
	AssetName string
	Ticker    string
	Source    model.Source
	Prices    []model.PricePoint
	Fetched   time.Time
}

// NewCacheRecord creates a CacheRecordBuilder with sensible defaults.
func NewCacheRecord(assetName string) *CacheRecordBuilder {
	return &CacheRecordBuilder{
		AssetName: assetName,
		Ticker:    "TEST",
		Source:    model.SourcePrimary,
		Prices:    SeriesFromCloses(Date("2024-01-01"), 100, 101, 102, 103, 104),
		Fetched:   time.Now().UTC(),
	}
}

// WithTicker sets the upstream ticker.
func (b *CacheRecordBuilder) WithTicker(ticker string) *CacheRecordBuilder {
	b.Ticker = ticker
	return b
}

// WithSource sets which upstream produced the record.
func (b *CacheRecordBuilder) WithSource(src model.Source) *CacheRecordBuilder {
	b.Source = src
	return b
}

// WithPrices sets the closing-price series.
func (b *CacheRecordBuilder) WithPrices(prices []model.PricePoint) *CacheRecordBuilder {
	b.Prices = prices
	return b
}

// FetchedAt sets the record's fetch timestamp.
func (b *CacheRecordBuilder) FetchedAt(t time.Time) *CacheRecordBuilder {
	b.Fetched = t
	return b
}

// Record returns the built record without persisting it.
func (b *CacheRecordBuilder) Record() model.AssetCacheRecord {
	return model.NewAssetCacheRecord(b.AssetName, b.Ticker, b.Source, b.Prices, b.Fetched)
}

// Build persists the record to the database and returns it.
func (b *CacheRecordBuilder) Build(t *testing.T, db *sql.DB) model.AssetCacheRecord {
	t.Helper()

	rec := b.Record()
	if err := repository.NewCacheRepository(db).Put(context.Background(), rec); err != nil {
		t.Fatalf("Failed to create cache record: %v", err)
	}
	return rec
}

// FailureBuilder persists failure sub-states for an asset.
//
// Example usage:
//
//	testutil.NewFailure("sp500").
//	    Primary(3, now, now.Add(5*time.Minute)).
//	    Build(t, db)
type FailureBuilder struct {
	AssetName string
	states    map[model.Source]model.SourceState
}

// NewFailure creates a FailureBuilder for assetName.
func NewFailure(assetName string) *FailureBuilder {
	return &FailureBuilder{AssetName: assetName, states: make(map[model.Source]model.SourceState)}
}

// Primary sets the primary sub-state. A zero cooldownUntil leaves the cooldown unset.
func (b *FailureBuilder) Primary(attempts int, lastAttempt, cooldownUntil time.Time) *FailureBuilder {
	b.states[model.SourcePrimary] = sourceState(attempts, lastAttempt, cooldownUntil)
	return b
}

// Secondary sets the secondary sub-state. A zero cooldownUntil leaves the cooldown unset.
func (b *FailureBuilder) Secondary(attempts int, lastAttempt, cooldownUntil time.Time) *FailureBuilder {
	b.states[model.SourceSecondary] = sourceState(attempts, lastAttempt, cooldownUntil)
	return b
}

func sourceState(attempts int, lastAttempt, cooldownUntil time.Time) model.SourceState {
	s := model.SourceState{Attempts: attempts, LastAttemptAt: lastAttempt, LastError: "scripted failure"}
	if !cooldownUntil.IsZero() {
		s.CooldownUntil = &cooldownUntil
	}
	return s
}

// Build persists the configured sub-states using maxAttempts 3.
func (b *FailureBuilder) Build(t *testing.T, db *sql.DB) {
	t.Helper()

	repo := repository.NewFailureRepository(db, 3)
	for src, s := range b.states {
		if err := repo.RecordFailure(context.Background(), b.AssetName, src, s); err != nil {
			t.Fatalf("Failed to create failure state: %v", err)
		}
	}
}

// NewRegistry builds an asset registry with one multiplicative asset per name.
// Each asset's ticker is its upper-cased name.
func NewRegistry(t *testing.T, names ...string) *assets.Registry {
	t.Helper()

	list := make([]model.Asset, len(names))
	for i, n := range names {
		list[i] = model.Asset{Name: n, Ticker: strings.ToUpper(n)}
	}
	reg, err := assets.NewRegistry(list...)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	return reg
}

// NewRegistryFromAssets builds a registry from explicit assets.
func NewRegistryFromAssets(t *testing.T, list ...model.Asset) *assets.Registry {
	t.Helper()

	reg, err := assets.NewRegistry(list...)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	return reg
}
