package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/metrics"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/source"
)

// PriceService serves closing prices for an arbitrary date range. Ranges the
// cached series covers are answered locally; anything else is downloaded from
// the quote source and returned without touching the cache.
type PriceService struct {
	registry AssetRegistry
	cache    CacheStore
	fetcher  source.Fetcher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewPriceService creates a PriceService that downloads through fetcher.
func NewPriceService(registry AssetRegistry, cache CacheStore, fetcher source.Fetcher, logger *slog.Logger, m *metrics.Metrics) *PriceService {
	return &PriceService{
		registry: registry,
		cache:    cache,
		fetcher:  fetcher,
		logger:   logger,
		metrics:  m,
	}
}

// Window returns the closes of assetName between start and end.
// Returns apperrors.ErrInvalidWindow when end is before start, and a
// *apperrors.FetchError when the download fails.
func (s *PriceService) Window(ctx context.Context, assetName string, start, end time.Time) (*model.PriceWindow, error) {
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", apperrors.ErrInvalidWindow,
			end.Format(model.DateLayout), start.Format(model.DateLayout))
	}
	asset, err := s.registry.Get(assetName)
	if err != nil {
		return nil, err
	}

	rec, err := s.cache.Get(ctx, asset.Name)
	switch {
	case err == nil && covers(rec.DateRange, start, end):
		return &model.PriceWindow{
			AssetName: asset.Name,
			Ticker:    rec.Ticker,
			Source:    rec.Source,
			Cached:    true,
			Range:     model.DateRange{Start: start, End: end},
			Prices:    slicePrices(rec.ClosingPrices, start, end),
		}, nil
	case err != nil && !errors.Is(err, apperrors.ErrCacheRecordNotFound):
		return nil, err
	}

	src := s.fetcher.Name()
	ticker := asset.TickerFor(src)
	began := time.Now()
	prices, err := s.fetcher.Fetch(ctx, ticker, &source.DateWindow{Start: start, End: end})
	s.metrics.ObserveFetch(src, time.Since(began), err)
	if err != nil {
		s.logger.Warn("price window download failed", "asset", asset.Name, "ticker", ticker, "error", err)
		return nil, err
	}

	return &model.PriceWindow{
		AssetName: asset.Name,
		Ticker:    ticker,
		Source:    src,
		Range:     model.DateRange{Start: start, End: end},
		Prices:    prices,
	}, nil
}

func covers(r model.DateRange, start, end time.Time) bool {
	if r.Start.IsZero() || r.End.IsZero() {
		return false
	}
	return !start.Before(r.Start) && !end.After(r.End)
}

func slicePrices(prices []model.PricePoint, start, end time.Time) []model.PricePoint {
	out := make([]model.PricePoint, 0)
	for _, p := range prices {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}
