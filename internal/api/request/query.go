// Package request holds the raw query parameters accepted by the API before validation.
package request

import "net/url"

// ReindexQuery is the query string of GET /api/assets/{asset}/reindex.
type ReindexQuery struct {
	Date   string
	Before string
	After  string
}

// ParseReindexQuery extracts the reindex parameters. Values are not validated.
func ParseReindexQuery(q url.Values) ReindexQuery {
	return ReindexQuery{
		Date:   q.Get("date"),
		Before: q.Get("before"),
		After:  q.Get("after"),
	}
}

// StatsQuery is the query string of GET /api/analysis/{asset}/stats.
type StatsQuery struct {
	Benchmark string
	Period    string
}

// ParseStatsQuery extracts the stats parameters. Values are not validated.
func ParseStatsQuery(q url.Values) StatsQuery {
	return StatsQuery{
		Benchmark: q.Get("benchmark"),
		Period:    q.Get("period"),
	}
}

// PriceQuery is the query string of GET /api/assets/{asset}/prices.
type PriceQuery struct {
	Start string
	End   string
}

// ParsePriceQuery extracts the price window parameters. Values are not validated.
func ParsePriceQuery(q url.Values) PriceQuery {
	return PriceQuery{
		Start: q.Get("start"),
		End:   q.Get("end"),
	}
}
