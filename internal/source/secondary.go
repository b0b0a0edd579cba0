package source

import (
	"context"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/yahoo"
)

// Secondary fetches daily quotes from the quote API.
type Secondary struct {
	client       yahoo.Client
	timeout      time.Duration
	historyYears int
	now          func() time.Time
}

// NewSecondary creates the secondary fetcher. Without a window, it requests
// historyYears of history ending today.
func NewSecondary(client yahoo.Client, timeout time.Duration, historyYears int) *Secondary {
	if historyYears <= 0 {
		historyYears = 5
	}
	return &Secondary{client: client, timeout: timeout, historyYears: historyYears, now: time.Now}
}

// WithClock overrides the clock used to derive the default window.
func (s *Secondary) WithClock(now func() time.Time) *Secondary {
	s.now = now
	return s
}

func (s *Secondary) Name() model.Source { return model.SourceSecondary }

// Fetch queries the quote API. Rows missing open, high or low are rejected one
// by one; the fetch only fails with NoData when no row survives.
func (s *Secondary) Fetch(ctx context.Context, ticker string, window *DateWindow) ([]model.PricePoint, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	end := model.Day(s.now()).AddDate(0, 0, 1)
	start := end.AddDate(-s.historyYears, 0, 0)
	if window != nil {
		if !window.Start.IsZero() {
			start = model.Day(window.Start)
		}
		if !window.End.IsZero() {
			end = model.Day(window.End).AddDate(0, 0, 1)
		}
	}

	resp, err := s.client.QueryYahooSymbolByDateRange(ctx, ticker, start, end)
	if err != nil {
		return nil, asFetchError(model.SourceSecondary, err)
	}
	chart, err := s.client.ParseChart(resp)
	if err != nil {
		return nil, asFetchError(model.SourceSecondary, err)
	}

	bars := make([]Bar, 0, len(chart.Indicators))
	for _, ind := range chart.Indicators {
		if ind.PriceOpen == nil || ind.PriceHigh == nil || ind.PriceLow == nil {
			continue
		}
		bars = append(bars, Bar{
			Date:  ind.Date,
			Open:  ind.PriceOpen,
			High:  ind.PriceHigh,
			Low:   ind.PriceLow,
			Close: ind.PriceClose,
		})
	}

	points := Normalize(filterWindow(bars, window))
	if len(points) == 0 {
		return nil, apperrors.NewFetchError(string(model.SourceSecondary), apperrors.KindNoData, "no complete rows for %s", ticker)
	}
	return points, nil
}
