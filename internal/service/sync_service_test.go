package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/logging"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/repository"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/testutil"
)

var syncStart = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

type syncFixture struct {
	db        *sql.DB
	clock     *testutil.FakeClock
	log       *testutil.CallLog
	primary   *testutil.MockFetcher
	secondary *testutil.MockFetcher
	failures  *repository.FailureRepository
	cache     *repository.CacheRepository
	svc       *service.SyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	reg := testutil.NewRegistryFromAssets(t,
		model.Asset{Name: "sp500", Ticker: "SPY"},
		model.Asset{Name: "vix", Ticker: "VIX", SecondaryTicker: "^VIX", Mode: model.ReindexAdditive},
	)

	f := &syncFixture{
		db:       db,
		clock:    testutil.NewFakeClock(syncStart),
		log:      &testutil.CallLog{},
		failures: repository.NewFailureRepository(db, 3),
		cache:    repository.NewCacheRepository(db),
	}
	f.primary = testutil.NewMockFetcher(model.SourcePrimary, f.log)
	f.secondary = testutil.NewMockFetcher(model.SourceSecondary, f.log)
	f.svc = testutil.NewTestSyncService(t, db, reg, f.primary, f.secondary, f.clock)
	return f
}

func (f *syncFixture) sync(t *testing.T, name string) model.SyncOutcome {
	t.Helper()
	out, err := f.svc.SyncAsset(context.Background(), name)
	require.NoError(t, err)
	return out
}

func (f *syncFixture) state(t *testing.T, name string) *model.SourceFailureState {
	t.Helper()
	state, err := f.failures.Get(context.Background(), name)
	if errors.Is(err, apperrors.ErrFailureStateNotFound) {
		return nil
	}
	require.NoError(t, err)
	return state
}

// brokenFailureStore rejects every RecordFailure write.
type brokenFailureStore struct {
	*repository.FailureRepository
}

func (brokenFailureStore) RecordFailure(context.Context, string, model.Source, model.SourceState) error {
	return errors.New("disk full")
}

// withBrokenFailureStore rebuilds f.svc over a failure store that cannot persist attempts.
func (f *syncFixture) withBrokenFailureStore(t *testing.T) {
	t.Helper()
	f.svc = service.NewSyncService(
		testutil.NewRegistry(t, "sp500"),
		f.cache.WithClock(f.clock.Now),
		brokenFailureStore{f.failures},
		f.primary,
		f.secondary,
		testutil.TestSyncConfig(),
		logging.Discard(),
		nil,
	).WithClock(f.clock.Now)
}

func series() []model.PricePoint {
	return testutil.SeriesFromCloses(testutil.Date("2024-05-01"), 100, 101, 102)
}

func TestSyncService_SyncAsset(t *testing.T) {
	t.Run("fresh cache returns without fetching", func(t *testing.T) {
		f := newSyncFixture(t)
		testutil.NewCacheRecord("sp500").FetchedAt(syncStart.Add(-23 * time.Hour)).Build(t, f.db)

		out := f.sync(t, "sp500")

		assert.Equal(t, model.SyncStatusFresh, out.Status)
		assert.Equal(t, []model.SyncState{model.StateCheckFresh, model.StateDone}, out.Path)
		assert.Empty(t, out.Attempted)
		assert.Empty(t, f.log.Calls())
		assert.Equal(t, "sp500 is up to date", out.Message)
	})

	t.Run("primary success updates the cache", func(t *testing.T) {
		f := newSyncFixture(t)
		f.primary.Succeed("SPY", series())

		out := f.sync(t, "sp500")

		assert.Equal(t, model.SyncStatusUpdated, out.Status)
		assert.Equal(t, model.SourcePrimary, out.Source)
		assert.Equal(t, 3, out.Rows)
		assert.Equal(t, []model.SyncState{
			model.StateCheckFresh,
			model.StateCheckCooldown,
			model.StateTryPrimary,
			model.StateRecordOutcome,
			model.StateDone,
		}, out.Path)
		assert.Equal(t, 0, f.secondary.Calls())

		rec, err := f.cache.Get(context.Background(), "sp500")
		require.NoError(t, err)
		assert.Equal(t, "SPY", rec.Ticker)
		assert.WithinDuration(t, syncStart, rec.FetchedAt, 0)
		assert.Len(t, rec.ClosingPrices, 3)
	})

	t.Run("stale cache is refetched", func(t *testing.T) {
		f := newSyncFixture(t)
		testutil.NewCacheRecord("sp500").FetchedAt(syncStart.Add(-25 * time.Hour)).Build(t, f.db)
		f.primary.Succeed("SPY", series())

		out := f.sync(t, "sp500")

		assert.Equal(t, model.SyncStatusUpdated, out.Status)
		assert.Equal(t, 1, f.primary.Calls())
	})

	t.Run("secondary is tried once after the primary fails", func(t *testing.T) {
		// WHY: The secondary source is a fallback and must never run before or
		// in parallel with the primary for the same asset.
		f := newSyncFixture(t)
		f.primary.Fail("VIX", apperrors.KindNotFound)
		f.secondary.Succeed("^VIX", series())

		out := f.sync(t, "vix")

		assert.Equal(t, []model.Source{model.SourcePrimary, model.SourceSecondary}, f.log.Sources())
		assert.Equal(t, "^VIX", f.log.Calls()[1].Ticker)
		assert.Equal(t, model.SyncStatusUpdated, out.Status)
		assert.Equal(t, model.SourceSecondary, out.Source)

		rec, err := f.cache.Get(context.Background(), "vix")
		require.NoError(t, err)
		assert.Equal(t, "^VIX", rec.Ticker)
		assert.Equal(t, model.SourceSecondary, rec.Source)
	})

	t.Run("both sources failing records one attempt each", func(t *testing.T) {
		f := newSyncFixture(t)
		f.primary.AlwaysFail(apperrors.KindUnknown)
		f.secondary.AlwaysFail(apperrors.KindRateLimited)

		out := f.sync(t, "sp500")

		assert.Equal(t, model.SyncStatusFailed, out.Status)
		assert.Contains(t, out.Error, "secondary")
		assert.Nil(t, out.RetryAt)

		state := f.state(t, "sp500")
		require.NotNil(t, state)
		assert.Equal(t, 1, state.Primary.Attempts)
		assert.Equal(t, 1, state.Secondary.Attempts)
		assert.False(t, state.Primary.Failed)
		assert.Nil(t, state.Primary.CooldownUntil)
	})

	t.Run("unrecorded failure is returned", func(t *testing.T) {
		f := newSyncFixture(t)
		f.withBrokenFailureStore(t)
		f.primary.AlwaysFail(apperrors.KindUnknown)
		f.secondary.AlwaysFail(apperrors.KindUnknown)

		out, err := f.svc.SyncAsset(context.Background(), "sp500")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, model.SyncStatusFailed, out.Status)
		assert.Len(t, f.log.Calls(), 2)
	})

	t.Run("unrecorded failure is moot once the secondary answers", func(t *testing.T) {
		f := newSyncFixture(t)
		f.withBrokenFailureStore(t)
		f.primary.AlwaysFail(apperrors.KindUnknown)
		f.secondary.AlwaysSucceed(series())

		out, err := f.svc.SyncAsset(context.Background(), "sp500")

		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusUpdated, out.Status)
	})

	t.Run("unknown asset", func(t *testing.T) {
		f := newSyncFixture(t)

		_, err := f.svc.SyncAsset(context.Background(), "nope")

		assert.ErrorIs(t, err, apperrors.ErrAssetNotFound)
		assert.Empty(t, f.log.Calls())
	})
}

// TestSyncService_RetryLifecycle walks one asset through repeated failures,
// cooldown and recovery.
//
// WHY: The retry counter, cooldown deadline and stale clearing interact across
// cycles, so they are checked in one sequence against a controlled clock.
func TestSyncService_RetryLifecycle(t *testing.T) {
	f := newSyncFixture(t)
	f.primary.AlwaysFail(apperrors.KindUnknown)
	f.secondary.AlwaysFail(apperrors.KindUnknown)

	// Cycles 1 and 2 fail without entering cooldown.
	for cycle := 1; cycle <= 2; cycle++ {
		out := f.sync(t, "sp500")
		assert.Equal(t, model.SyncStatusFailed, out.Status)

		state := f.state(t, "sp500")
		assert.Equal(t, cycle, state.Primary.Attempts)
		assert.False(t, state.Primary.Failed)
		f.clock.Advance(time.Minute)
	}

	// Cycle 3 still tries the primary first and trips both cooldowns.
	before := len(f.log.Calls())
	out := f.sync(t, "sp500")
	calls := f.log.Calls()[before:]
	require.Len(t, calls, 2)
	assert.Equal(t, model.SourcePrimary, calls[0].Source)
	assert.Equal(t, model.SyncStatusFailed, out.Status)

	state := f.state(t, "sp500")
	tripped := f.clock.Now()
	assert.Equal(t, 3, state.Primary.Attempts)
	assert.True(t, state.Primary.Failed)
	require.NotNil(t, state.Primary.CooldownUntil)
	assert.WithinDuration(t, tripped.Add(5*time.Minute), *state.Primary.CooldownUntil, 0)
	require.NotNil(t, out.RetryAt)
	assert.WithinDuration(t, tripped.Add(5*time.Minute), *out.RetryAt, 0)

	// Cycle 4 inside the cooldown is skipped without network calls.
	f.clock.Advance(4 * time.Minute)
	before = len(f.log.Calls())
	out = f.sync(t, "sp500")
	assert.Equal(t, model.SyncStatusCooldown, out.Status)
	assert.Equal(t, []model.SyncState{model.StateCheckFresh, model.StateCheckCooldown, model.StateDone}, out.Path)
	assert.Len(t, f.log.Calls(), before)
	require.NotNil(t, out.RetryAt)
	assert.WithinDuration(t, tripped.Add(5*time.Minute), *out.RetryAt, 0)
	assert.NotEmpty(t, out.Error)

	// Cycle 5 after expiry clears the stale record and starts counting again.
	f.clock.Advance(time.Minute)
	out = f.sync(t, "sp500")
	assert.Equal(t, model.SyncStatusFailed, out.Status)
	state = f.state(t, "sp500")
	assert.Equal(t, 1, state.Primary.Attempts)
	assert.False(t, state.Primary.Failed)
	assert.Nil(t, state.Primary.CooldownUntil)

	// Recovery clears every sub-state.
	f.primary.Default = nil
	f.primary.Succeed("SPY", series())
	out = f.sync(t, "sp500")
	assert.Equal(t, model.SyncStatusUpdated, out.Status)
	assert.Nil(t, f.state(t, "sp500"))
}

func TestSyncService_Cooldown(t *testing.T) {
	t.Run("primary cooling down goes straight to the secondary", func(t *testing.T) {
		f := newSyncFixture(t)
		testutil.NewFailure("sp500").
			Primary(3, syncStart.Add(-time.Minute), syncStart.Add(4*time.Minute)).
			Build(t, f.db)
		f.secondary.Succeed("SPY", series())

		out := f.sync(t, "sp500")

		assert.Equal(t, []model.Source{model.SourceSecondary}, f.log.Sources())
		assert.Equal(t, []model.SyncState{
			model.StateCheckFresh,
			model.StateCheckCooldown,
			model.StateTrySecondary,
			model.StateRecordOutcome,
			model.StateDone,
		}, out.Path)
		assert.Equal(t, model.SyncStatusUpdated, out.Status)

		// WHY: A success from either source clears both sub-states.
		assert.Nil(t, f.state(t, "sp500"))
	})

	t.Run("secondary cooling down is not tried after a primary failure", func(t *testing.T) {
		f := newSyncFixture(t)
		testutil.NewFailure("sp500").
			Secondary(3, syncStart.Add(-time.Minute), syncStart.Add(4*time.Minute)).
			Build(t, f.db)
		f.primary.Fail("SPY", apperrors.KindUnknown)

		out := f.sync(t, "sp500")

		assert.Equal(t, []model.Source{model.SourcePrimary}, f.log.Sources())
		assert.Equal(t, model.SyncStatusFailed, out.Status)
		require.NotNil(t, out.RetryAt)
		assert.WithinDuration(t, syncStart.Add(4*time.Minute), *out.RetryAt, 0)
	})

	t.Run("record below max attempts is kept", func(t *testing.T) {
		f := newSyncFixture(t)
		testutil.NewFailure("sp500").Primary(2, syncStart.Add(-time.Hour), time.Time{}).Build(t, f.db)
		f.primary.Fail("SPY", apperrors.KindUnknown)
		f.secondary.Fail("SPY", apperrors.KindUnknown)

		f.sync(t, "sp500")

		state := f.state(t, "sp500")
		assert.Equal(t, 3, state.Primary.Attempts)
		assert.True(t, state.Primary.Failed)
	})

	t.Run("cooldown ends exactly at the deadline", func(t *testing.T) {
		f := newSyncFixture(t)
		until := syncStart
		testutil.NewFailure("sp500").
			Primary(3, syncStart.Add(-5*time.Minute), until).
			Secondary(3, syncStart.Add(-5*time.Minute), until).
			Build(t, f.db)
		f.primary.Succeed("SPY", series())

		out := f.sync(t, "sp500")

		assert.Equal(t, model.SyncStatusUpdated, out.Status)
		assert.Equal(t, []model.Source{model.SourcePrimary}, f.log.Sources())
	})
}

func TestSyncService_WriteBack(t *testing.T) {
	t.Run("secondary result is published to the primary ticker", func(t *testing.T) {
		f := newSyncFixture(t)
		pub := &testutil.MockPublisher{}
		f.svc.WithPublisher(pub)
		f.primary.Fail("VIX", apperrors.KindNotFound)
		f.secondary.Succeed("^VIX", series())

		f.sync(t, "vix")

		assert.Equal(t, 1, pub.Count())
		assert.Len(t, pub.Published["VIX"], 3)
	})

	t.Run("primary result is not published", func(t *testing.T) {
		f := newSyncFixture(t)
		pub := &testutil.MockPublisher{}
		f.svc.WithPublisher(pub)
		f.primary.Succeed("SPY", series())

		f.sync(t, "sp500")

		assert.Equal(t, 0, pub.Count())
	})

	t.Run("publish failure does not change the outcome", func(t *testing.T) {
		f := newSyncFixture(t)
		pub := &testutil.MockPublisher{Err: errors.New("422 sha mismatch")}
		f.svc.WithPublisher(pub)
		f.primary.Fail("VIX", apperrors.KindNotFound)
		f.secondary.Succeed("^VIX", series())

		out := f.sync(t, "vix")

		assert.Equal(t, model.SyncStatusUpdated, out.Status)
		assert.Empty(t, out.Error)
		assert.Nil(t, f.state(t, "vix"))
	})
}
