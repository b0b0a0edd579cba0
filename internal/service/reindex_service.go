package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/analytics"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/config"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/metrics"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// ReindexService answers event-relative queries from cached series only; it
// never calls an upstream. Results are memoized in the derived store under a
// key that includes the source record's fetch time, so a refresh invalidates them.
type ReindexService struct {
	registry AssetRegistry
	cache    CacheStore
	derived  DerivedStore
	cfg      config.ReindexConfig
	ttl      time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewReindexService creates a ReindexService. ttl is the derived cache lifetime
// used by EvictExpired. derived and m may be nil.
func NewReindexService(
	registry AssetRegistry,
	cache CacheStore,
	derived DerivedStore,
	cfg config.ReindexConfig,
	ttl time.Duration,
	logger *slog.Logger,
	m *metrics.Metrics,
) *ReindexService {
	return &ReindexService{
		registry: registry,
		cache:    cache,
		derived:  derived,
		cfg:      cfg,
		ttl:      ttl,
		logger:   logger,
		metrics:  m,
	}
}

// Defaults returns the configured window sizes.
func (s *ReindexService) Defaults() (daysBefore, daysAfter int) {
	return s.cfg.DaysBefore, s.cfg.DaysAfter
}

// cachedReindex is the msgpack payload stored in the derived cache. Dates are
// kept as calendar-day strings so decoding never depends on a time zone.
type cachedReindex struct {
	Result model.ReindexResult `msgpack:"r"`
	Ref    string              `msgpack:"ref"`
	Dates  []string            `msgpack:"d"`
}

// ComputeWindow returns the reindexed series for req.
//
// Returns:
//   - apperrors.ErrAssetNotFound when the asset is not registered
//   - apperrors.ErrInvalidWindow when a window size is negative or too large
//   - apperrors.ErrInsufficientData when there is no cached record, the window
//     is empty, or the baseline is zero in multiplicative mode
func (s *ReindexService) ComputeWindow(ctx context.Context, req model.ReindexRequest) (*model.ReindexResult, error) {
	if req.DaysBefore < 0 || req.DaysAfter < 0 || req.DaysBefore > model.MaxWindowDays || req.DaysAfter > model.MaxWindowDays {
		return nil, apperrors.ErrInvalidWindow
	}
	asset, err := s.registry.Get(req.AssetName)
	if err != nil {
		return nil, err
	}
	req.ReferenceDate = model.Day(req.ReferenceDate)

	rec, err := s.cache.Get(ctx, asset.Name)
	if errors.Is(err, apperrors.ErrCacheRecordNotFound) {
		s.metrics.ObserveReindex("absent")
		return nil, apperrors.ErrInsufficientData
	}
	if err != nil {
		return nil, err
	}

	key := reindexKey(req, asset.ReindexMode(), rec.FetchedAt)
	if cached, ok := s.lookup(ctx, key); ok {
		s.metrics.ObserveReindex("hit")
		return cached, nil
	}

	res, ok := analytics.Reindex(rec, req, asset.ReindexMode())
	if !ok {
		s.metrics.ObserveReindex("absent")
		return nil, apperrors.ErrInsufficientData
	}
	s.metrics.ObserveReindex("miss")
	s.store(ctx, key, asset.Name, res)
	return &res, nil
}

func reindexKey(req model.ReindexRequest, mode model.ReindexMode, fetchedAt time.Time) string {
	return fmt.Sprintf("reindex:%s:%s:%d:%d:%s:%d",
		req.AssetName,
		req.ReferenceDate.Format(model.DateLayout),
		req.DaysBefore,
		req.DaysAfter,
		mode,
		fetchedAt.UTC().UnixNano(),
	)
}

func (s *ReindexService) lookup(ctx context.Context, key string) (*model.ReindexResult, bool) {
	if s.derived == nil {
		return nil, false
	}
	data, err := s.derived.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, apperrors.ErrDerivedEntryNotFound) {
			s.logger.Warn("derived cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var payload cachedReindex
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		s.logger.Warn("derived cache entry undecodable", "key", key, "error", err)
		return nil, false
	}
	res := payload.Result
	ref, err := time.Parse(model.DateLayout, payload.Ref)
	if err != nil {
		return nil, false
	}
	res.ReferenceDate = ref
	res.Dates = make([]time.Time, len(payload.Dates))
	for i, d := range payload.Dates {
		t, err := time.Parse(model.DateLayout, d)
		if err != nil {
			return nil, false
		}
		res.Dates[i] = t
	}
	if len(res.Dates) != len(res.RawValues) || len(res.Dates) != len(res.NormalizedValues) {
		return nil, false
	}
	return &res, true
}

func (s *ReindexService) store(ctx context.Context, key, assetName string, res model.ReindexResult) {
	if s.derived == nil {
		return
	}
	payload := cachedReindex{
		Result: res,
		Ref:    res.ReferenceDate.Format(model.DateLayout),
		Dates:  make([]string, len(res.Dates)),
	}
	for i, d := range res.Dates {
		payload.Dates[i] = d.Format(model.DateLayout)
	}
	data, err := msgpack.Marshal(&payload)
	if err != nil {
		s.logger.Warn("failed to encode reindex result", "key", key, "error", err)
		return
	}
	if err := s.derived.Put(ctx, key, assetName, data); err != nil {
		s.logger.Warn("derived cache write failed", "key", key, "error", err)
	}
}

// EvictExpired removes derived entries older than the configured TTL.
func (s *ReindexService) EvictExpired(ctx context.Context) (int64, error) {
	n, err := s.cache.EvictOlderThan(ctx, s.ttl)
	if err != nil {
		return 0, err
	}
	s.metrics.ObserveEviction(n)
	if n > 0 {
		s.logger.Info("evicted derived cache entries", "count", n, "ttl", s.ttl)
	}
	return n, nil
}
