// Package source adapts the upstream clients to a single Fetcher contract and
// normalizes their rows into the canonical closing-price series.
package source

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// DefaultTimeout bounds a single Fetch call when none is configured.
const DefaultTimeout = 20 * time.Second

// DateWindow limits a fetch to [Start, End], both inclusive calendar days.
// A zero Start or End leaves that side open.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day falls inside the window.
func (w *DateWindow) Contains(day time.Time) bool {
	if w == nil {
		return true
	}
	if !w.Start.IsZero() && day.Before(model.Day(w.Start)) {
		return false
	}
	if !w.End.IsZero() && day.After(model.Day(w.End)) {
		return false
	}
	return true
}

// Fetcher retrieves a normalized daily closing series for a ticker.
// Every error returned is an *apperrors.FetchError.
type Fetcher interface {
	Name() model.Source
	Fetch(ctx context.Context, ticker string, window *DateWindow) ([]model.PricePoint, error)
}

// Publisher writes a normalized series back to an upstream.
type Publisher interface {
	Publish(ctx context.Context, ticker string, prices []model.PricePoint) error
}

// Bar is the provider-neutral row shape both adapters convert into before
// normalization. OHLC fields are nil when the provider does not supply them.
type Bar struct {
	Date  time.Time
	Open  *float64
	High  *float64
	Low   *float64
	Close *float64
}

// Normalize turns bars into an ascending, date-unique series.
//
// Rows are dropped when the close is missing or not finite, or when both high
// and low are present and high < low. For duplicate dates the row seen last wins.
func Normalize(bars []Bar) []model.PricePoint {
	byDate := make(map[time.Time]float64, len(bars))
	for _, b := range bars {
		if b.Close == nil || !finite(*b.Close) {
			continue
		}
		if b.High != nil && b.Low != nil && *b.High < *b.Low {
			continue
		}
		byDate[model.Day(b.Date)] = *b.Close
	}

	points := make([]model.PricePoint, 0, len(byDate))
	for d, c := range byDate {
		points = append(points, model.PricePoint{Date: d, Close: c})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func filterWindow(bars []Bar, window *DateWindow) []Bar {
	if window == nil {
		return bars
	}
	out := bars[:0]
	for _, b := range bars {
		if window.Contains(model.Day(b.Date)) {
			out = append(out, b)
		}
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
