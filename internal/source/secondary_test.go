package source_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/source"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/testutil"
)

func TestSecondary_Fetch(t *testing.T) {
	ctx := context.Background()
	d := testutil.Date
	now := time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC)

	t.Run("rejects incomplete rows individually", func(t *testing.T) {
		mock := testutil.NewMockYahooClient().WithResponse(testutil.CreateMockYahooResponseRows("^VIX",
			testutil.FullRow(d("2024-06-10"), 12),
			testutil.QuoteRow{Date: d("2024-06-11"), Open: nil, High: testutil.Float(13), Low: testutil.Float(12), Close: testutil.Float(12.5)},
			testutil.QuoteRow{Date: d("2024-06-12"), Open: testutil.Float(13), High: testutil.Float(14), Low: nil, Close: testutil.Float(13.5)},
			testutil.FullRow(d("2024-06-13"), 14),
		))
		s := source.NewSecondary(mock, time.Second, 5).WithClock(func() time.Time { return now })

		got, err := s.Fetch(ctx, "^VIX", nil)
		require.NoError(t, err)
		assert.Equal(t, model.SourceSecondary, s.Name())
		assert.Equal(t, []model.PricePoint{
			{Date: d("2024-06-10"), Close: 12},
			{Date: d("2024-06-13"), Close: 14},
		}, got)
	})

	t.Run("no complete rows is NoData", func(t *testing.T) {
		mock := testutil.NewMockYahooClient().WithResponse(testutil.CreateMockYahooResponseRows("X",
			testutil.QuoteRow{Date: d("2024-06-11"), Close: testutil.Float(1)},
		))
		s := source.NewSecondary(mock, time.Second, 5)

		_, err := s.Fetch(ctx, "X", nil)
		fe, ok := apperrors.AsFetchError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.KindNoData, fe.Kind)
		assert.Equal(t, "secondary", fe.Source)
	})

	t.Run("default window covers the configured history", func(t *testing.T) {
		mock := testutil.NewMockYahooClient()
		s := source.NewSecondary(mock, time.Second, 2).WithClock(func() time.Time { return now })

		_, err := s.Fetch(ctx, "SPY", nil)
		require.NoError(t, err)
		require.Equal(t, 1, mock.QueryCount())

		q := mock.Queries[0]
		assert.Equal(t, "SPY", q.Symbol)
		assert.Equal(t, d("2024-06-16"), q.End, "end is exclusive, so tomorrow")
		assert.Equal(t, d("2022-06-16"), q.Start)
	})

	t.Run("explicit window is passed through", func(t *testing.T) {
		mock := testutil.NewMockYahooClient()
		s := source.NewSecondary(mock, time.Second, 5)

		_, _ = s.Fetch(ctx, "SPY", &source.DateWindow{Start: d("2024-01-01"), End: d("2024-01-31")})
		require.Equal(t, 1, mock.QueryCount())
		assert.Equal(t, d("2024-01-01"), mock.Queries[0].Start)
		assert.Equal(t, d("2024-02-01"), mock.Queries[0].End)
	})

	t.Run("client errors are relabelled", func(t *testing.T) {
		mock := testutil.NewMockYahooClient().WithError(apperrors.NewFetchError("yahoo", apperrors.KindNotFound, "unknown symbol"))
		s := source.NewSecondary(mock, time.Second, 5)

		_, err := s.Fetch(ctx, "NOPE", nil)
		fe, ok := apperrors.AsFetchError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.KindNotFound, fe.Kind)
		assert.Equal(t, "secondary", fe.Source)
	})

	t.Run("empty chart is NoData", func(t *testing.T) {
		mock := testutil.NewMockYahooClient().WithResponse(testutil.CreateMockYahooResponseRows("X"))
		s := source.NewSecondary(mock, time.Second, 5)

		_, err := s.Fetch(ctx, "X", nil)
		assert.Equal(t, apperrors.KindNoData, apperrors.KindOf(err))
	})
}
