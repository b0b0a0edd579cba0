package validation

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/request"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

func TestValidateAssetName(t *testing.T) {
	valid := []string{"sp500", "us10y", "BTC-USD", "gold.spot"}
	for _, name := range valid {
		assert.NoError(t, ValidateAssetName(name), name)
	}

	invalid := []string{"", "  ", "-leading", "has space", "a/b"}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateAssetName(name), apperrors.ErrInvalidAssetName, name)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04T00:00:00Z", d.Format("2006-01-02T15:04:05Z07:00"))

	_, err = ParseDate("04/03/2024")
	assert.ErrorIs(t, err, apperrors.ErrInvalidDate)
}

func TestValidateReindexQuery(t *testing.T) {
	t.Run("defaults fill missing windows", func(t *testing.T) {
		req, err := ValidateReindexQuery("sp500", request.ReindexQuery{Date: "2024-01-05"}, 30, 60)
		require.NoError(t, err)

		assert.Equal(t, "sp500", req.AssetName)
		assert.Equal(t, 30, req.DaysBefore)
		assert.Equal(t, 60, req.DaysAfter)
		assert.Equal(t, 5, req.ReferenceDate.Day())
	})

	t.Run("explicit windows", func(t *testing.T) {
		req, err := ValidateReindexQuery("sp500", request.ReindexQuery{Date: "2024-01-05", Before: "0", After: "3650"}, 30, 60)
		require.NoError(t, err)
		assert.Equal(t, 0, req.DaysBefore)
		assert.Equal(t, 3650, req.DaysAfter)
	})

	t.Run("window bound is shared with the reindex engine", func(t *testing.T) {
		limit := strconv.Itoa(model.MaxWindowDays)
		_, err := ValidateReindexQuery("sp500", request.ReindexQuery{Date: "2024-01-05", Before: limit, After: limit}, 30, 60)
		require.NoError(t, err)

		over := strconv.Itoa(model.MaxWindowDays + 1)
		_, err = ValidateReindexQuery("sp500", request.ReindexQuery{Date: "2024-01-05", Before: over}, 30, 60)
		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "before must be a whole number of days between 0 and "+limit, verr.Fields["before"])
	})

	t.Run("field errors are collected", func(t *testing.T) {
		_, err := ValidateReindexQuery("sp500", request.ReindexQuery{Before: "-1", After: "ten"}, 30, 60)

		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "date")
		assert.Contains(t, verr.Fields, "before")
		assert.Contains(t, verr.Fields, "after")
	})

	t.Run("bad date format", func(t *testing.T) {
		_, err := ValidateReindexQuery("sp500", request.ReindexQuery{Date: "2024-13-01"}, 30, 60)

		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "date must be formatted as YYYY-MM-DD", verr.Fields["date"])
	})
}

func TestValidateStatsQuery(t *testing.T) {
	tests := []struct {
		name       string
		q          request.StatsQuery
		wantPeriod int
		wantErr    bool
	}{
		{"empty", request.StatsQuery{}, 0, false},
		{"period and benchmark", request.StatsQuery{Benchmark: "nasdaq", Period: "50"}, 50, false},
		{"period too small", request.StatsQuery{Period: "1"}, 0, true},
		{"period not a number", request.StatsQuery{Period: "abc"}, 0, true},
		{"bad benchmark", request.StatsQuery{Benchmark: "a b"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, period, err := ValidateStatsQuery(tt.q)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPeriod, period)
		})
	}
}

func TestValidatePriceQuery(t *testing.T) {
	now := time.Date(2024, 6, 3, 18, 45, 0, 0, time.UTC)

	t.Run("explicit range", func(t *testing.T) {
		start, end, err := ValidatePriceQuery(request.PriceQuery{Start: "2024-01-01", End: "2024-02-01"}, now)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01", start.Format(model.DateLayout))
		assert.Equal(t, "2024-02-01", end.Format(model.DateLayout))
	})

	t.Run("missing end means today", func(t *testing.T) {
		_, end, err := ValidatePriceQuery(request.PriceQuery{Start: "2024-01-01"}, now)
		require.NoError(t, err)
		assert.Equal(t, model.Day(now), end)
	})

	t.Run("single day", func(t *testing.T) {
		start, end, err := ValidatePriceQuery(request.PriceQuery{Start: "2024-01-01", End: "2024-01-01"}, now)
		require.NoError(t, err)
		assert.Equal(t, start, end)
	})

	tests := []struct {
		name  string
		query request.PriceQuery
		field string
	}{
		{"missing start", request.PriceQuery{End: "2024-01-01"}, "start"},
		{"malformed start", request.PriceQuery{Start: "01/01/2024"}, "start"},
		{"malformed end", request.PriceQuery{Start: "2024-01-01", End: "soon"}, "end"},
		{"end before start", request.PriceQuery{Start: "2024-02-01", End: "2024-01-01"}, "end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ValidatePriceQuery(tt.query, now)
			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestValidateDocType(t *testing.T) {
	for in, want := range map[string]model.DocType{"news": model.DocNews, "Research": model.DocResearch, " NEWS ": model.DocNews} {
		got, err := ValidateDocType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "filings", "new"} {
		_, err := ValidateDocType(in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidDocType, in)
	}
}
