package yahoo

import "time"

// Response represents the raw JSON response structure from Yahoo Finance API.
// This type maps directly to the Yahoo Finance chart API response format,
// containing nested structures for metadata, timestamps, and price indicators.
//
// The structure includes:
//   - Chart.Result: Array of result objects (typically contains one element)
//   - Chart.Result[].Meta: Symbol metadata (name, currency, exchange, UTC offset)
//   - Chart.Result[].Timestamp: Unix timestamps for each data point
//   - Chart.Result[].Indicators: Price data arrays (open, close, high, low, volume)
//   - Chart.Error: Optional error object from Yahoo API
//
// Any element of the price arrays may be null, so they decode into pointer slices.
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart is the top-level payload of a chart response.
type Chart struct {
	Result []Result    `json:"result"`
	Error  *ChartError `json:"error"`
}

// ChartError is the error object Yahoo embeds in otherwise well-formed responses.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Result holds one symbol's series.
type Result struct {
	Meta       Meta                `json:"meta"`
	Timestamp  []int64             `json:"timestamp"`
	Indicators IndicatorsContainer `json:"indicators"`
}

// Meta is the symbol metadata block.
type Meta struct {
	Currency         string `json:"currency"`
	Symbol           string `json:"symbol"`
	ExchangeName     string `json:"exchangeName"`
	FullExchangeName string `json:"fullExchangeName"`
	LongName         string `json:"longName"`
	Shortname        string `json:"shortName"`
	GmtOffset        int64  `json:"gmtoffset"`
}

// IndicatorsContainer wraps the quote arrays.
type IndicatorsContainer struct {
	Quote []Quote `json:"quote"`
}

// Quote holds parallel OHLCV arrays aligned with Result.Timestamp.
type Quote struct {
	Open   []*float64 `json:"open"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
}

// PriceChart represents a parsed and structured price chart from Yahoo Finance.
// This is the application's internal representation after parsing the raw Response.
type PriceChart struct {
	Currency         string       `json:"currency"`
	Symbol           string       `json:"symbol"`
	ExchangeName     string       `json:"exchangeName"`
	FullExchangeName string       `json:"fullExchangeName"`
	LongName         string       `json:"longName"`
	Shortname        string       `json:"shortName"`
	Indicators       []Indicators `json:"indicators"`
}

// Indicators represents a single day's price data for a financial instrument.
// A nil field means Yahoo returned null for that value on that day.
//
// Fields:
//   - Date: Trading date in the exchange's calendar (midnight UTC)
//   - PriceOpen / PriceHigh / PriceLow / PriceClose: OHLC prices
//   - Volume: Number of shares traded during the day
type Indicators struct {
	Date       time.Time
	PriceOpen  *float64
	PriceClose *float64
	Volume     *int64
	PriceHigh  *float64
	PriceLow   *float64
}
