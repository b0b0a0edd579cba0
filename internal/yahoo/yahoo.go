package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/httputil"
)

const sourceName = "yahoo"

// DefaultBaseURL is the public chart API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client is the subset of FinanceClient used by the quote fetcher.
type Client interface {
	QueryYahooSymbolByDateRange(ctx context.Context, symbol string, startDate, endDate time.Time) (Response, error)
	ParseChart(yahooResult Response) (PriceChart, error)
}

// FinanceClient provides methods for fetching financial data from Yahoo Finance API.
// It wraps an HTTP client and a request limiter so concurrent refreshes stay under
// the provider's throttling threshold.
type FinanceClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// Option configures a FinanceClient.
type Option func(*FinanceClient)

// WithBaseURL points the client at another host (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(c *FinanceClient) { c.baseURL = baseURL }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *FinanceClient) { c.httpClient.Timeout = d }
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *FinanceClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewFinanceClient creates a new Yahoo Finance client.
//
// Returns:
//   - *FinanceClient: A new client instance ready for use
func NewFinanceClient(opts ...Option) *FinanceClient {
	c := &FinanceClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseChart converts a raw Yahoo Finance API response into a structured price chart.
// Null values are preserved as nil pointers; dropping unusable rows is left to the caller.
//
// The method performs validation to ensure:
//   - A result with timestamp data is present
//   - Close price data is present
//   - The close array has the same length as the timestamps
//
// Returns:
//   - PriceChart: Structured chart with indicators and metadata
//   - error: FetchError of kind NoData or Malformed
func (c *FinanceClient) ParseChart(yahooResult Response) (PriceChart, error) {
	if len(yahooResult.Chart.Result) == 0 {
		return PriceChart{}, apperrors.NewFetchError(sourceName, apperrors.KindNoData, "no results returned")
	}
	result := yahooResult.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return PriceChart{}, apperrors.NewFetchError(sourceName, apperrors.KindNoData, "no price data returned")
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return PriceChart{}, apperrors.NewFetchError(sourceName, apperrors.KindMalformed, "no close prices returned")
	}

	quote := result.Indicators.Quote[0]
	if len(quote.Close) != len(result.Timestamp) {
		return PriceChart{}, apperrors.NewFetchError(sourceName, apperrors.KindMalformed,
			"mismatched data lengths: %d timestamps, %d closes", len(result.Timestamp), len(quote.Close))
	}

	indicators := make([]Indicators, len(result.Timestamp))
	for i, v := range result.Timestamp {
		local := time.Unix(v+result.Meta.GmtOffset, 0).UTC()
		indicators[i].Date = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		indicators[i].PriceOpen = at(quote.Open, i)
		indicators[i].PriceClose = at(quote.Close, i)
		indicators[i].Volume = atInt(quote.Volume, i)
		indicators[i].PriceHigh = at(quote.High, i)
		indicators[i].PriceLow = at(quote.Low, i)
	}

	return PriceChart{
		Symbol:           result.Meta.Symbol,
		Currency:         result.Meta.Currency,
		ExchangeName:     result.Meta.ExchangeName,
		FullExchangeName: result.Meta.FullExchangeName,
		LongName:         result.Meta.LongName,
		Shortname:        result.Meta.Shortname,
		Indicators:       indicators,
	}, nil
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func atInt(values []*int64, i int) *int64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

// QueryYahooSymbolByDateRange fetches daily price data for a symbol within a specific date range.
//
// Parameters:
//   - ctx: Cancels the request and any wait on the rate limiter
//   - symbol: Stock ticker symbol (e.g., "AAPL", "^VIX")
//   - startDate: Beginning of date range (inclusive)
//   - endDate: End of date range (inclusive)
//
// Returns:
//   - Response: Raw API response containing price data for the range
//   - error: FetchError classified by kind
func (c *FinanceClient) QueryYahooSymbolByDateRange(ctx context.Context, symbol string, startDate, endDate time.Time) (Response, error) {
	u := fmt.Sprintf(
		"%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL,
		url.PathEscape(symbol),
		startDate.Unix(),
		endDate.Unix(),
	)
	result, err := c.queryYahoo(ctx, u)
	if err != nil {
		return Response{}, err
	}
	if len(result.Chart.Result) == 0 {
		return Response{}, apperrors.NewFetchError(sourceName, apperrors.KindNoData, "no results returned for symbol %s", symbol)
	}

	return result, nil
}

// queryYahoo fetches a chart payload and maps the error object Yahoo embeds in
// otherwise well-formed responses to FetchError kinds.
func (c *FinanceClient) queryYahoo(ctx context.Context, u string) (Response, error) {
	data, err := c.get(ctx, u)
	if err != nil {
		return Response{}, err
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return Response{}, &apperrors.FetchError{Source: sourceName, Kind: apperrors.KindMalformed, Message: "invalid JSON payload", Err: err}
	}

	if response.Chart.Error != nil {
		kind := apperrors.KindUnknown
		if response.Chart.Error.Code == "Not Found" {
			kind = apperrors.KindNotFound
		}
		return response, apperrors.NewFetchError(sourceName, kind, "yahoo error: %s: %s",
			response.Chart.Error.Code, response.Chart.Error.Description)
	}

	return response, nil
}

// get executes a paced GET against the API and returns the body of a 2xx
// response. Transport and status failures are mapped to FetchError kinds.
func (c *FinanceClient) get(ctx context.Context, u string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, httputil.ClassifyTransportError(sourceName, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &apperrors.FetchError{Source: sourceName, Kind: apperrors.KindUnknown, Message: "invalid request", Err: err}
	}

	req.Header.Set("User-Agent", httputil.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, httputil.ClassifyTransportError(sourceName, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, httputil.ClassifyTransportError(sourceName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httputil.ClassifyStatus(sourceName, resp, time.Now())
	}
	return data, nil
}
