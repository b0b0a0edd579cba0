package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/testutil"
)

func TestAssetService(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	clock := testutil.NewFakeClock(syncStart)
	reg := testutil.NewRegistry(t, "sp500", "gold", "oil")

	testutil.NewCacheRecord("sp500").FetchedAt(syncStart.Add(-time.Hour)).Build(t, db)
	testutil.NewCacheRecord("gold").FetchedAt(syncStart.Add(-48 * time.Hour)).Build(t, db)
	testutil.NewFailure("oil").
		Primary(3, syncStart, syncStart.Add(5*time.Minute)).
		Secondary(3, syncStart, syncStart.Add(5*time.Minute)).
		Build(t, db)
	svc := testutil.NewTestAssetService(t, db, reg, clock)

	t.Run("list joins cache and failure state", func(t *testing.T) {
		list, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)

		assert.Equal(t, "sp500", list[0].Asset.Name)
		assert.True(t, list[0].Cached)
		assert.True(t, list[0].Fresh)
		assert.Equal(t, 5, list[0].Rows)
		require.NotNil(t, list[0].DateRange)

		assert.True(t, list[1].Cached)
		assert.False(t, list[1].Fresh)

		assert.False(t, list[2].Cached)
		require.NotNil(t, list[2].Failures)
		assert.Equal(t, "scripted failure", list[2].LastError)
		require.NotNil(t, list[2].RetryAt)
		assert.WithinDuration(t, syncStart.Add(5*time.Minute), *list[2].RetryAt, 0)
	})

	t.Run("get", func(t *testing.T) {
		rec, err := svc.Get(ctx, "sp500")
		require.NoError(t, err)
		assert.Equal(t, "sp500", rec.AssetName)

		_, err = svc.Get(ctx, "oil")
		assert.ErrorIs(t, err, apperrors.ErrCacheRecordNotFound)

		_, err = svc.Get(ctx, "nope")
		assert.ErrorIs(t, err, apperrors.ErrAssetNotFound)
	})

	t.Run("failures and clear", func(t *testing.T) {
		state, err := svc.Failures(ctx, "sp500")
		require.NoError(t, err)
		assert.Nil(t, state.Primary)
		assert.Nil(t, state.Secondary)

		state, err = svc.Failures(ctx, "oil")
		require.NoError(t, err)
		require.NotNil(t, state.Primary)
		assert.True(t, state.Primary.Failed)

		require.NoError(t, svc.ClearFailures(ctx, "oil"))
		state, err = svc.Failures(ctx, "oil")
		require.NoError(t, err)
		assert.Nil(t, state.Primary)

		assert.ErrorIs(t, svc.ClearFailures(ctx, "nope"), apperrors.ErrAssetNotFound)
	})
}

func TestSystemService(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestSystemService(t, db)

	assert.NoError(t, svc.CheckHealth(context.Background()))
	assert.NotEmpty(t, svc.CheckVersion())

	db.Close()
	assert.Error(t, svc.CheckHealth(context.Background()))
}
