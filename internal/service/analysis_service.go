package service

import (
	"context"
	"errors"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/analytics"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

const (
	// DefaultSMAPeriod is used when a stats request does not name a period.
	DefaultSMAPeriod = 20
	// RSIPeriod is the standard Wilder lookback.
	RSIPeriod = 14
)

// AnalysisService computes summary statistics from cached series.
type AnalysisService struct {
	registry AssetRegistry
	cache    CacheStore
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(registry AssetRegistry, cache CacheStore) *AnalysisService {
	return &AnalysisService{registry: registry, cache: cache}
}

// Stats returns SMA and RSI for assetName and, when benchmark is set, the
// correlation and beta of daily returns on the dates both series share.
// Values that cannot be computed from the available history are left nil.
func (s *AnalysisService) Stats(ctx context.Context, assetName, benchmark string, smaPeriod int) (*model.AssetStats, error) {
	if smaPeriod == 0 {
		smaPeriod = DefaultSMAPeriod
	}
	if smaPeriod < 2 || smaPeriod > 500 {
		return nil, apperrors.ErrInvalidPeriod
	}

	rec, err := s.load(ctx, assetName)
	if err != nil {
		return nil, err
	}

	closes := analytics.Closes(rec.ClosingPrices)
	stats := &model.AssetStats{
		AssetName:    assetName,
		Observations: len(closes),
		SMAPeriod:    smaPeriod,
		RSIPeriod:    RSIPeriod,
	}
	if v, ok := analytics.Last(closes); ok {
		stats.LastClose = &v
	}
	if v, ok := analytics.Last(analytics.SMA(closes, smaPeriod)); ok {
		stats.SMA = &v
	}
	if v, ok := analytics.Last(analytics.RSI(closes, RSIPeriod)); ok {
		stats.RSI = &v
	}

	if benchmark == "" || benchmark == assetName {
		return stats, nil
	}

	bench, err := s.load(ctx, benchmark)
	if err != nil {
		return nil, err
	}
	stats.Benchmark = benchmark

	a, b := analytics.Align(rec.ClosingPrices, bench.ClosingPrices)
	stats.AlignedDays = len(a)
	ra, rb := analytics.DropNaN(analytics.Returns(a), analytics.Returns(b))
	if v, ok := analytics.Correlation(ra, rb); ok {
		stats.Correlation = &v
	}
	if v, ok := analytics.Beta(ra, rb); ok {
		stats.Beta = &v
	}
	return stats, nil
}

func (s *AnalysisService) load(ctx context.Context, assetName string) (*model.AssetCacheRecord, error) {
	if _, err := s.registry.Get(assetName); err != nil {
		return nil, err
	}
	rec, err := s.cache.Get(ctx, assetName)
	if errors.Is(err, apperrors.ErrCacheRecordNotFound) {
		return nil, apperrors.ErrInsufficientData
	}
	return rec, err
}
