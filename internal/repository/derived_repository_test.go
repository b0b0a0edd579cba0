package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/repository"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/testutil"
)

func TestDerivedRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	clock := testutil.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	repo := repository.NewDerivedRepository(db).WithClock(clock.Now)

	_, err := repo.Get(ctx, "k1")
	assert.ErrorIs(t, err, apperrors.ErrDerivedEntryNotFound)

	require.NoError(t, repo.Put(ctx, "k1", "sp500", []byte("one")))
	require.NoError(t, repo.Put(ctx, "k1", "sp500", []byte("two")))

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got, "put replaces by key")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	clock.Advance(2 * time.Hour)
	evicted, err := repo.EvictOlderThan(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), evicted)

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
