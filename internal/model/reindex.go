package model

import "time"

// MaxWindowDays bounds DaysBefore and DaysAfter of a reindex request.
const MaxWindowDays = 3650

// ReindexRequest asks for an event-relative view of an asset around ReferenceDate.
type ReindexRequest struct {
	AssetName     string
	ReferenceDate time.Time
	DaysBefore    int
	DaysAfter     int
}

// ReindexResult is a date-aligned series normalized to a baseline of 100.
// Dates, RawValues and NormalizedValues always have equal length.
type ReindexResult struct {
	AssetName        string      `msgpack:"asset"`
	Mode             ReindexMode `msgpack:"mode"`
	ReferenceDate    time.Time   `msgpack:"-"`
	Dates            []time.Time `msgpack:"-"`
	RawValues        []float64   `msgpack:"raw"`
	NormalizedValues []float64   `msgpack:"norm"`
	BaselineValue    float64     `msgpack:"base"`
}
