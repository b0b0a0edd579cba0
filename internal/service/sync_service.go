package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/config"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/metrics"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/source"
)

// SyncService refreshes one asset at a time by walking the sync state machine:
//
//	CHECK_FRESH    -> DONE (fresh) | CHECK_COOLDOWN
//	CHECK_COOLDOWN -> DONE (both sources cooling down) | TRY_PRIMARY | TRY_SECONDARY
//	TRY_PRIMARY    -> RECORD_OUTCOME (success or secondary cooling down) | TRY_SECONDARY
//	TRY_SECONDARY  -> RECORD_OUTCOME
//	RECORD_OUTCOME -> DONE
//
// Fetch errors never escape SyncAsset; they are recorded in the FailureTracker and
// reported in the outcome. Only registry misses and store failures are returned.
type SyncService struct {
	registry  AssetRegistry
	cache     CacheStore
	failures  FailureTracker
	primary   source.Fetcher
	secondary source.Fetcher
	publisher source.Publisher
	cfg       config.SyncConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewSyncService creates a SyncService. metrics may be nil.
func NewSyncService(
	registry AssetRegistry,
	cache CacheStore,
	failures FailureTracker,
	primary source.Fetcher,
	secondary source.Fetcher,
	cfg config.SyncConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) *SyncService {
	return &SyncService{
		registry:  registry,
		cache:     cache,
		failures:  failures,
		primary:   primary,
		secondary: secondary,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// WithClock overrides the time source.
func (s *SyncService) WithClock(now func() time.Time) *SyncService {
	s.now = now
	return s
}

// WithPublisher enables writing series fetched from the secondary source back to
// the primary repository.
func (s *SyncService) WithPublisher(p source.Publisher) *SyncService {
	s.publisher = p
	return s
}

// syncRun carries the state of one SyncAsset invocation between steps.
type syncRun struct {
	asset    model.Asset
	now      time.Time
	failures *model.SourceFailureState
	outcome  model.SyncOutcome
	prices   []model.PricePoint
	winner   model.Source
	lastErr  error
	storeErr error
}

// SyncAsset runs the state machine for assetName once.
func (s *SyncService) SyncAsset(ctx context.Context, assetName string) (model.SyncOutcome, error) {
	asset, err := s.registry.Get(assetName)
	if err != nil {
		return model.SyncOutcome{}, err
	}

	run := &syncRun{
		asset: asset,
		now:   s.now(),
		outcome: model.SyncOutcome{
			AssetName: asset.Name,
			Attempted: []model.Source{},
			Path:      []model.SyncState{},
		},
	}

	state := model.StateCheckFresh
	for state != model.StateDone {
		run.outcome.Path = append(run.outcome.Path, state)

		next, err := s.step(ctx, run, state)
		if err != nil {
			return run.outcome, err
		}
		state = next
	}
	run.outcome.Path = append(run.outcome.Path, model.StateDone)

	s.metrics.ObserveSync(run.outcome.Status)
	return run.outcome, nil
}

func (s *SyncService) step(ctx context.Context, run *syncRun, state model.SyncState) (model.SyncState, error) {
	switch state {
	case model.StateCheckFresh:
		return s.checkFresh(ctx, run)
	case model.StateCheckCooldown:
		return s.checkCooldown(ctx, run)
	case model.StateTryPrimary:
		if s.attempt(ctx, run, s.primary) {
			return model.StateRecordOutcome, nil
		}
		if run.failures.InCooldown(model.SourceSecondary, run.now) {
			return model.StateRecordOutcome, nil
		}
		return model.StateTrySecondary, nil
	case model.StateTrySecondary:
		s.attempt(ctx, run, s.secondary)
		return model.StateRecordOutcome, nil
	case model.StateRecordOutcome:
		return model.StateDone, s.recordOutcome(ctx, run)
	default:
		return model.StateDone, fmt.Errorf("unknown sync state %q", state)
	}
}

func (s *SyncService) checkFresh(ctx context.Context, run *syncRun) (model.SyncState, error) {
	fresh, err := s.cache.IsFresh(ctx, run.asset.Name, s.cfg.Freshness)
	if err != nil {
		return model.StateDone, err
	}
	if !fresh {
		return model.StateCheckCooldown, nil
	}

	run.outcome.Status = model.SyncStatusFresh
	run.outcome.Message = fmt.Sprintf("%s is up to date", run.asset.Name)
	return model.StateDone, nil
}

func (s *SyncService) checkCooldown(ctx context.Context, run *syncRun) (model.SyncState, error) {
	state, err := s.failures.Get(ctx, run.asset.Name)
	if err != nil && !errors.Is(err, apperrors.ErrFailureStateNotFound) {
		return model.StateDone, err
	}
	run.failures = state

	primaryCooling := state.InCooldown(model.SourcePrimary, run.now)
	secondaryCooling := state.InCooldown(model.SourceSecondary, run.now)

	if primaryCooling && secondaryCooling {
		retryAt := state.RetryAt(run.now)
		run.outcome.Status = model.SyncStatusCooldown
		run.outcome.Error = state.LastError()
		run.outcome.RetryAt = retryAt
		run.outcome.Message = fmt.Sprintf("%s skipped: all sources cooling down until %s",
			run.asset.Name, retryAt.UTC().Format(time.RFC3339))
		s.logger.Info("sync skipped, sources cooling down",
			"asset", run.asset.Name,
			"retry_at", retryAt,
		)
		return model.StateDone, nil
	}

	if state.Stale(run.now) {
		if err := s.failures.Clear(ctx, run.asset.Name); err != nil {
			return model.StateDone, err
		}
		s.logger.Debug("cleared expired failure state", "asset", run.asset.Name)
		run.failures = nil
	}

	if primaryCooling {
		return model.StateTrySecondary, nil
	}
	return model.StateTryPrimary, nil
}

// attempt calls f and records a failure against its sub-state. It reports
// whether the fetch succeeded.
func (s *SyncService) attempt(ctx context.Context, run *syncRun, f source.Fetcher) bool {
	src := f.Name()
	ticker := run.asset.TickerFor(src)
	run.outcome.Attempted = append(run.outcome.Attempted, src)

	start := time.Now()
	prices, err := f.Fetch(ctx, ticker, nil)
	s.metrics.ObserveFetch(src, time.Since(start), err)

	if err == nil && len(prices) == 0 {
		err = apperrors.NewFetchError(string(src), apperrors.KindNoData, "empty series for %s", ticker)
	}
	if err == nil {
		run.prices = prices
		run.winner = src
		return true
	}

	run.lastErr = err
	if recErr := s.recordFailure(ctx, run, src, err); recErr != nil {
		s.logger.Error("failed to record fetch failure",
			"asset", run.asset.Name,
			"source", src,
			"error", recErr,
		)
		if run.storeErr == nil {
			run.storeErr = recErr
		}
	}
	return false
}

func (s *SyncService) recordFailure(ctx context.Context, run *syncRun, src model.Source, fetchErr error) error {
	prev := run.failures.For(src)

	attempts := 1
	if prev != nil && !prev.CooldownExpired(run.now) {
		attempts = prev.Attempts + 1
	}

	next := model.SourceState{
		Attempts:      attempts,
		LastAttemptAt: run.now,
		Failed:        attempts >= s.cfg.MaxAttempts,
		LastError:     fetchErr.Error(),
	}
	if next.Failed {
		until := run.now.Add(s.cfg.CooldownDuration)
		next.CooldownUntil = &until
	}

	s.logger.Warn("fetch failed",
		"asset", run.asset.Name,
		"source", src,
		"kind", apperrors.KindOf(fetchErr),
		"attempts", attempts,
		"cooldown_until", next.CooldownUntil,
		"error", fetchErr,
	)

	if err := s.failures.RecordFailure(ctx, run.asset.Name, src, next); err != nil {
		return err
	}

	if run.failures == nil {
		run.failures = &model.SourceFailureState{AssetName: run.asset.Name}
	}
	switch src {
	case model.SourcePrimary:
		run.failures.Primary = &next
	case model.SourceSecondary:
		run.failures.Secondary = &next
	}
	return nil
}

func (s *SyncService) recordOutcome(ctx context.Context, run *syncRun) error {
	if run.prices == nil {
		run.outcome.Status = model.SyncStatusFailed
		run.outcome.RetryAt = run.failures.RetryAt(run.now)
		if run.lastErr != nil {
			run.outcome.Error = run.lastErr.Error()
		} else {
			run.outcome.Error = run.failures.LastError()
		}
		run.outcome.Message = fmt.Sprintf("%s could not be refreshed: %s", run.asset.Name, run.outcome.Error)
		// An unpersisted attempt would leave the cooldown counters behind.
		return run.storeErr
	}

	ticker := run.asset.TickerFor(run.winner)
	rec := model.NewAssetCacheRecord(run.asset.Name, ticker, run.winner, run.prices, run.now)
	if err := s.cache.Put(ctx, rec); err != nil {
		return err
	}
	if err := s.failures.RecordSuccess(ctx, run.asset.Name); err != nil {
		return err
	}

	run.outcome.Status = model.SyncStatusUpdated
	run.outcome.Source = run.winner
	run.outcome.Rows = len(run.prices)
	run.outcome.Message = fmt.Sprintf("%s updated from %s (%d rows)", run.asset.Name, run.winner, len(run.prices))

	s.logger.Info("asset refreshed",
		"asset", run.asset.Name,
		"source", run.winner,
		"rows", len(run.prices),
	)

	if run.winner == model.SourceSecondary && s.publisher != nil {
		s.publish(ctx, run)
	}
	return nil
}

// publish writes the series back to the primary repository. Failures are logged
// and do not change the outcome.
func (s *SyncService) publish(ctx context.Context, run *syncRun) {
	ticker := run.asset.TickerFor(model.SourcePrimary)
	if err := s.publisher.Publish(ctx, ticker, run.prices); err != nil {
		s.logger.Warn("write-back to primary repository failed",
			"asset", run.asset.Name,
			"ticker", ticker,
			"error", err,
		)
		return
	}
	s.logger.Info("published series to primary repository", "asset", run.asset.Name, "ticker", ticker)
}
