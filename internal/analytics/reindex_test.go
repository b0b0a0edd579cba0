package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(points ...model.PricePoint) *model.AssetCacheRecord {
	rec := model.NewAssetCacheRecord("X", "X", model.SourcePrimary, points, time.Now())
	return &rec
}

func pt(date string, c float64) model.PricePoint {
	return model.PricePoint{Date: day(date), Close: c}
}

func TestReindex_Multiplicative(t *testing.T) {
	rec := record(pt("2024-01-01", 100), pt("2024-01-05", 110), pt("2024-01-10", 90))
	req := model.ReindexRequest{AssetName: "X", ReferenceDate: day("2024-01-05"), DaysBefore: 10, DaysAfter: 10}

	res, ok := Reindex(rec, req, model.ReindexMultiplicative)
	require.True(t, ok)

	assert.Equal(t, 110.0, res.BaselineValue, "baseline is the last row on or before the reference date")
	assert.Equal(t, []time.Time{day("2024-01-01"), day("2024-01-05"), day("2024-01-10")}, res.Dates)
	assert.Equal(t, []float64{100, 110, 90}, res.RawValues)
	require.Len(t, res.NormalizedValues, 3)
	assert.InDelta(t, 90.9, res.NormalizedValues[0], 0.05)
	assert.InDelta(t, 100.0, res.NormalizedValues[1], 1e-12)
	assert.InDelta(t, 81.8, res.NormalizedValues[2], 0.05)
	assert.Equal(t, model.ReindexMultiplicative, res.Mode)
}

func TestReindex_Additive(t *testing.T) {
	rec := record(pt("2024-03-01", 4.2), pt("2024-03-04", 4.5), pt("2024-03-05", 4.0))
	req := model.ReindexRequest{ReferenceDate: day("2024-03-04"), DaysBefore: 30, DaysAfter: 60}

	res, ok := Reindex(rec, req, model.ReindexAdditive)
	require.True(t, ok)

	assert.Equal(t, 4.5, res.BaselineValue)
	assert.InDeltaSlice(t, []float64{99.7, 100, 99.5}, res.NormalizedValues, 1e-9)
}

func TestReindex_BaselineFallback(t *testing.T) {
	t.Run("reference date before the window data uses the first row", func(t *testing.T) {
		rec := record(pt("2024-01-10", 50), pt("2024-01-11", 55))
		req := model.ReindexRequest{ReferenceDate: day("2024-01-08"), DaysBefore: 5, DaysAfter: 5}

		res, ok := Reindex(rec, req, model.ReindexMultiplicative)
		require.True(t, ok)
		assert.Equal(t, 50.0, res.BaselineValue)
		assert.InDeltaSlice(t, []float64{100, 110}, res.NormalizedValues, 1e-9)
	})

	t.Run("reference date on a non-trading day uses the previous close", func(t *testing.T) {
		rec := record(pt("2024-01-05", 10), pt("2024-01-08", 20))
		req := model.ReindexRequest{ReferenceDate: day("2024-01-06"), DaysBefore: 5, DaysAfter: 5}

		res, ok := Reindex(rec, req, model.ReindexMultiplicative)
		require.True(t, ok)
		assert.Equal(t, 10.0, res.BaselineValue)
	})
}

func TestReindex_Window(t *testing.T) {
	rec := record(pt("2024-01-01", 1), pt("2024-01-02", 2), pt("2024-01-08", 8), pt("2024-01-09", 9))

	t.Run("bounds are inclusive", func(t *testing.T) {
		req := model.ReindexRequest{ReferenceDate: day("2024-01-05"), DaysBefore: 3, DaysAfter: 3}

		res, ok := Reindex(rec, req, model.ReindexMultiplicative)
		require.True(t, ok)
		assert.Equal(t, []float64{2, 8}, res.RawValues)
	})

	t.Run("empty window is absent", func(t *testing.T) {
		req := model.ReindexRequest{ReferenceDate: day("2025-01-01"), DaysBefore: 30, DaysAfter: 60}

		_, ok := Reindex(rec, req, model.ReindexMultiplicative)
		assert.False(t, ok)
	})

	t.Run("unsorted input is sorted", func(t *testing.T) {
		unsorted := &model.AssetCacheRecord{ClosingPrices: []model.PricePoint{pt("2024-01-03", 3), pt("2024-01-01", 1)}}
		req := model.ReindexRequest{ReferenceDate: day("2024-01-02"), DaysBefore: 5, DaysAfter: 5}

		res, ok := Reindex(unsorted, req, model.ReindexMultiplicative)
		require.True(t, ok)
		assert.Equal(t, []float64{1, 3}, res.RawValues)
		assert.Equal(t, 1.0, res.BaselineValue)
	})

	t.Run("missing record is absent", func(t *testing.T) {
		_, ok := Reindex(nil, model.ReindexRequest{ReferenceDate: day("2024-01-05")}, model.ReindexMultiplicative)
		assert.False(t, ok)
	})
}

func TestReindex_ZeroBaseline(t *testing.T) {
	rec := record(pt("2024-01-01", 5), pt("2024-01-02", 0), pt("2024-01-03", 7))
	req := model.ReindexRequest{ReferenceDate: day("2024-01-02"), DaysBefore: 5, DaysAfter: 5}

	_, ok := Reindex(rec, req, model.ReindexMultiplicative)
	assert.False(t, ok, "multiplicative mode never divides by a zero baseline")

	res, ok := Reindex(rec, req, model.ReindexAdditive)
	require.True(t, ok, "additive mode has no division")
	for _, v := range res.NormalizedValues {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	assert.Equal(t, []float64{105, 100, 107}, res.NormalizedValues)
}

func TestReindex_Idempotent(t *testing.T) {
	rec := record(pt("2024-01-01", 100.123), pt("2024-01-05", 110.456), pt("2024-01-10", 90.789))
	req := model.ReindexRequest{AssetName: "X", ReferenceDate: day("2024-01-05"), DaysBefore: 10, DaysAfter: 10}

	first, ok := Reindex(rec, req, model.ReindexMultiplicative)
	require.True(t, ok)
	second, ok := Reindex(rec, req, model.ReindexMultiplicative)
	require.True(t, ok)

	assert.Equal(t, first, second)
	for i := range first.NormalizedValues {
		assert.Equal(t, math.Float64bits(first.NormalizedValues[i]), math.Float64bits(second.NormalizedValues[i]))
	}
}

func TestReindex_UnknownModeIsMultiplicative(t *testing.T) {
	rec := record(pt("2024-01-01", 50), pt("2024-01-02", 100))
	req := model.ReindexRequest{ReferenceDate: day("2024-01-01"), DaysBefore: 1, DaysAfter: 1}

	res, ok := Reindex(rec, req, "")
	require.True(t, ok)
	assert.Equal(t, model.ReindexMultiplicative, res.Mode)
	assert.Equal(t, []float64{100, 200}, res.NormalizedValues)
}
