package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/yahoo"
)

// MockYahooClient is a mock implementation of yahoo.Client for testing.
// It returns predefined test data instead of making actual API calls.
type MockYahooClient struct {
	mu sync.Mutex
	// MockResponse is the response to return from query methods
	MockResponse yahoo.Response
	// MockError is the error to return from query methods
	MockError error
	// Queries records every symbol and range requested, in call order
	Queries []YahooQuery
}

// YahooQuery is one recorded call to QueryYahooSymbolByDateRange.
type YahooQuery struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

// NewMockYahooClient creates a new mock Yahoo client with default test data.
// The default data includes 5 days of historical prices suitable for testing.
func NewMockYahooClient() *MockYahooClient {
	return &MockYahooClient{
		MockResponse: CreateMockYahooResponse(5),
	}
}

// QueryYahooSymbolByDateRange mocks the date range query with predefined test data.
// It returns the configured MockResponse and MockError.
func (m *MockYahooClient) QueryYahooSymbolByDateRange(_ context.Context, symbol string, start, end time.Time) (yahoo.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, YahooQuery{Symbol: symbol, Start: start, End: end})
	if m.MockError != nil {
		return yahoo.Response{}, m.MockError
	}
	return m.MockResponse, nil
}

// ParseChart delegates to the real ParseChart method since it's pure logic with no side effects.
func (m *MockYahooClient) ParseChart(yahooResult yahoo.Response) (yahoo.PriceChart, error) {
	return yahoo.NewFinanceClient().ParseChart(yahooResult)
}

// QueryCount returns how many queries were made.
func (m *MockYahooClient) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// WithError configures the mock to return the specified error.
func (m *MockYahooClient) WithError(err error) *MockYahooClient {
	m.MockError = err
	return m
}

// WithResponse configures the mock to return the specified response.
func (m *MockYahooClient) WithResponse(resp yahoo.Response) *MockYahooClient {
	m.MockResponse = resp
	return m
}

// QuoteRow is one day of a mocked quote response. Nil fields are sent as null.
type QuoteRow struct {
	Date  time.Time
	Open  *float64
	High  *float64
	Low   *float64
	Close *float64
}

// FullRow builds a QuoteRow with open/high/low derived from close.
func FullRow(date time.Time, closePrice float64) QuoteRow {
	return QuoteRow{
		Date:  date,
		Open:  Float(closePrice),
		High:  Float(closePrice + 1),
		Low:   Float(closePrice - 1),
		Close: Float(closePrice),
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// CreateMockYahooResponseRows creates a chart response from explicit rows.
// Timestamps are midnight UTC with a zero gmtoffset.
func CreateMockYahooResponseRows(symbol string, rows ...QuoteRow) yahoo.Response {
	quote := yahoo.Quote{}
	timestamps := make([]int64, len(rows))
	for i, r := range rows {
		timestamps[i] = r.Date.Unix()
		volume := int64(1000000 + i*10000)
		quote.Open = append(quote.Open, r.Open)
		quote.High = append(quote.High, r.High)
		quote.Low = append(quote.Low, r.Low)
		quote.Close = append(quote.Close, r.Close)
		quote.Volume = append(quote.Volume, &volume)
	}

	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{
				{
					Meta: yahoo.Meta{
						Symbol:   symbol,
						Currency: "USD",
					},
					Timestamp:  timestamps,
					Indicators: yahoo.IndicatorsContainer{Quote: []yahoo.Quote{quote}},
				},
			},
		},
	}
}

// CreateMockYahooResponse creates a mock Yahoo Finance API response with test data.
// The response includes `days` number of days of price data, ending yesterday.
func CreateMockYahooResponse(days int) yahoo.Response {
	yesterday := Date(time.Now().UTC().Format("2006-01-02")).AddDate(0, 0, -1)

	rows := make([]QuoteRow, days)
	for i := range rows {
		rows[i] = FullRow(yesterday.AddDate(0, 0, -days+i+1), 100.25+float64(i)*0.5)
	}
	return CreateMockYahooResponseRows("TEST", rows...)
}

// CreateMockYahooErrorResponse creates a mock Yahoo response carrying a chart error.
func CreateMockYahooErrorResponse(code, description string) yahoo.Response {
	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{},
			Error:  &yahoo.ChartError{Code: code, Description: description},
		},
	}
}
