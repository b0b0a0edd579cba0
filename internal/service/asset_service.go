package service

import (
	"context"
	"errors"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// AssetService exposes the registry joined with cache and failure state.
type AssetService struct {
	registry  AssetRegistry
	cache     CacheStore
	failures  FailureTracker
	freshness time.Duration
	now       func() time.Time
}

// NewAssetService creates a new AssetService. freshness is the cache age limit
// used to flag summaries as fresh.
func NewAssetService(registry AssetRegistry, cache CacheStore, failures FailureTracker, freshness time.Duration) *AssetService {
	return &AssetService{
		registry:  registry,
		cache:     cache,
		failures:  failures,
		freshness: freshness,
		now:       time.Now,
	}
}

// WithClock overrides the time source.
func (s *AssetService) WithClock(now func() time.Time) *AssetService {
	s.now = now
	return s
}

// List returns one summary per registered asset in registry order.
func (s *AssetService) List(ctx context.Context) ([]model.AssetSummary, error) {
	records, err := s.cache.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	failures, err := s.failures.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	all := s.registry.All()
	out := make([]model.AssetSummary, 0, len(all))
	for _, a := range all {
		sum := model.AssetSummary{Asset: a}
		if rec, ok := records[a.Name]; ok {
			fetched := rec.FetchedAt
			dr := rec.DateRange
			sum.Cached = true
			sum.Fresh = now.Sub(rec.FetchedAt) < s.freshness
			sum.FetchedAt = &fetched
			sum.Rows = len(rec.ClosingPrices)
			if sum.Rows > 0 {
				sum.DateRange = &dr
			}
		}
		if f, ok := failures[a.Name]; ok {
			sum.Failures = f
			sum.LastError = f.LastError()
			sum.RetryAt = f.RetryAt(now)
		}
		out = append(out, sum)
	}
	return out, nil
}

// Get returns the cached record for a registered asset.
func (s *AssetService) Get(ctx context.Context, assetName string) (*model.AssetCacheRecord, error) {
	if _, err := s.registry.Get(assetName); err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, assetName)
}

// Failures returns the tracked failure state of a registered asset. An asset
// without failures yields an empty state rather than an error.
func (s *AssetService) Failures(ctx context.Context, assetName string) (*model.SourceFailureState, error) {
	if _, err := s.registry.Get(assetName); err != nil {
		return nil, err
	}
	state, err := s.failures.Get(ctx, assetName)
	if errors.Is(err, apperrors.ErrFailureStateNotFound) {
		return &model.SourceFailureState{AssetName: assetName}, nil
	}
	return state, err
}

// ClearFailures removes all tracked failure state for a registered asset.
func (s *AssetService) ClearFailures(ctx context.Context, assetName string) error {
	if _, err := s.registry.Get(assetName); err != nil {
		return err
	}
	return s.failures.Clear(ctx, assetName)
}
