package model

import "time"

// DateLayout is the calendar-day format used on the wire and in storage.
const DateLayout = "2006-01-02"

// CacheSchemaVersion is bumped whenever the persisted record shape changes.
// Records written with another version are treated as absent.
const CacheSchemaVersion = 2

// PricePoint is a single normalized closing price for a calendar day.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// DateRange bounds a series; both ends are inclusive calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AssetCacheRecord is the cached closing-price series for one asset.
//
// Invariants:
//   - ClosingPrices is ascending by date with no duplicate dates
//   - DateRange.Start/End equal the first/last ClosingPrices dates
//   - FetchedAt never moves backwards for the same asset
type AssetCacheRecord struct {
	AssetName     string       `json:"assetName"`
	Ticker        string       `json:"ticker"`
	Source        Source       `json:"source"`
	ClosingPrices []PricePoint `json:"closingPrices"`
	DateRange     DateRange    `json:"dateRange"`
	FetchedAt     time.Time    `json:"fetchedAt"`
	SchemaVersion int          `json:"schemaVersion"`
}

// NewAssetCacheRecord builds a record from an already normalized series and
// derives the date range from it.
func NewAssetCacheRecord(assetName, ticker string, src Source, prices []PricePoint, fetchedAt time.Time) AssetCacheRecord {
	rec := AssetCacheRecord{
		AssetName:     assetName,
		Ticker:        ticker,
		Source:        src,
		ClosingPrices: prices,
		FetchedAt:     fetchedAt.UTC(),
		SchemaVersion: CacheSchemaVersion,
	}
	if len(prices) > 0 {
		rec.DateRange = DateRange{
			Start: prices[0].Date,
			End:   prices[len(prices)-1].Date,
		}
	}
	return rec
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Age reports how long ago the record was fetched.
func (r AssetCacheRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.FetchedAt)
}
