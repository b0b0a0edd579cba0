// Package analytics holds pure computations over cached closing-price series.
package analytics

import (
	"sort"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// Reindex normalizes the part of rec around req.ReferenceDate so the baseline
// close maps to 100.
//
// The window is [ReferenceDate-DaysBefore, ReferenceDate+DaysAfter], inclusive.
// The baseline is the close of the last row on or before the reference date, or
// the first row in the window when the reference date precedes all of it.
//
// ok is false when rec is nil, the window is empty, or the baseline is zero in
// multiplicative mode.
func Reindex(rec *model.AssetCacheRecord, req model.ReindexRequest, mode model.ReindexMode) (model.ReindexResult, bool) {
	if rec == nil {
		return model.ReindexResult{}, false
	}

	ref := model.Day(req.ReferenceDate)
	from := ref.AddDate(0, 0, -req.DaysBefore)
	to := ref.AddDate(0, 0, req.DaysAfter)

	window := make([]model.PricePoint, 0)
	for _, p := range rec.ClosingPrices {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		window = append(window, p)
	}
	if len(window) == 0 {
		return model.ReindexResult{}, false
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].Date.Before(window[j].Date) })

	baseline := window[0].Close
	for _, p := range window {
		if p.Date.After(ref) {
			break
		}
		baseline = p.Close
	}

	if mode != model.ReindexAdditive {
		mode = model.ReindexMultiplicative
		if baseline == 0 {
			return model.ReindexResult{}, false
		}
	}

	res := model.ReindexResult{
		AssetName:        req.AssetName,
		Mode:             mode,
		ReferenceDate:    ref,
		Dates:            make([]time.Time, len(window)),
		RawValues:        make([]float64, len(window)),
		NormalizedValues: make([]float64, len(window)),
		BaselineValue:    baseline,
	}
	for i, p := range window {
		res.Dates[i] = p.Date
		res.RawValues[i] = p.Close
		res.NormalizedValues[i] = normalize(p.Close, baseline, mode)
	}
	return res, true
}

func normalize(value, baseline float64, mode model.ReindexMode) float64 {
	if mode == model.ReindexAdditive {
		return value - baseline + 100
	}
	return value / baseline * 100
}
