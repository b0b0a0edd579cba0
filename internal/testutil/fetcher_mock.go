package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/source"
)

// FetchCall is one recorded call to MockFetcher.Fetch.
type FetchCall struct {
	Source model.Source
	Ticker string
	Window *source.DateWindow
}

// CallLog collects fetch calls across several fetchers so tests can assert
// the order sources were tried in.
type CallLog struct {
	mu    sync.Mutex
	calls []FetchCall
}

func (l *CallLog) add(c FetchCall) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

// Calls returns a copy of the recorded calls in order.
func (l *CallLog) Calls() []FetchCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]FetchCall, len(l.calls))
	copy(out, l.calls)
	return out
}

// Sources returns the source of each recorded call in order.
func (l *CallLog) Sources() []model.Source {
	calls := l.Calls()
	out := make([]model.Source, len(calls))
	for i, c := range calls {
		out[i] = c.Source
	}
	return out
}

// MockFetcher is a scripted source.Fetcher.
//
// Responses are looked up per ticker; a ticker without a script returns
// Default, or a NotFound FetchError when Default is nil. Delay simulates
// network latency and lets tests observe concurrency through MaxInFlight.
type MockFetcher struct {
	mu       sync.Mutex
	name     model.Source
	scripts  map[string][]FetchResult
	Default  *FetchResult
	Delay    time.Duration
	Log      *CallLog
	calls    int
	inFlight int
	maxSeen  int
}

// FetchResult is one scripted response.
type FetchResult struct {
	Prices []model.PricePoint
	Err    error
}

// NewMockFetcher creates a fetcher reporting name. log may be shared between fetchers.
func NewMockFetcher(name model.Source, log *CallLog) *MockFetcher {
	if log == nil {
		log = &CallLog{}
	}
	return &MockFetcher{name: name, scripts: make(map[string][]FetchResult), Log: log}
}

// Name implements source.Fetcher.
func (m *MockFetcher) Name() model.Source { return m.name }

// Succeed queues a successful response for ticker.
func (m *MockFetcher) Succeed(ticker string, prices []model.PricePoint) *MockFetcher {
	return m.queue(ticker, FetchResult{Prices: prices})
}

// Fail queues a failure of the given kind for ticker.
func (m *MockFetcher) Fail(ticker string, kind apperrors.FetchKind) *MockFetcher {
	return m.queue(ticker, FetchResult{Err: apperrors.NewFetchError(string(m.name), kind, "scripted failure for %s", ticker)})
}

// AlwaysSucceed makes every unscripted call succeed with prices.
func (m *MockFetcher) AlwaysSucceed(prices []model.PricePoint) *MockFetcher {
	m.Default = &FetchResult{Prices: prices}
	return m
}

// AlwaysFail makes every unscripted call fail with kind.
func (m *MockFetcher) AlwaysFail(kind apperrors.FetchKind) *MockFetcher {
	m.Default = &FetchResult{Err: apperrors.NewFetchError(string(m.name), kind, "scripted failure")}
	return m
}

func (m *MockFetcher) queue(ticker string, r FetchResult) *MockFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[ticker] = append(m.scripts[ticker], r)
	return m
}

// Fetch implements source.Fetcher.
func (m *MockFetcher) Fetch(ctx context.Context, ticker string, window *source.DateWindow) ([]model.PricePoint, error) {
	m.mu.Lock()
	m.calls++
	m.inFlight++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
	var res FetchResult
	switch {
	case len(m.scripts[ticker]) > 0:
		res = m.scripts[ticker][0]
		m.scripts[ticker] = m.scripts[ticker][1:]
	case m.Default != nil:
		res = *m.Default
	default:
		res = FetchResult{Err: apperrors.NewFetchError(string(m.name), apperrors.KindNotFound, "no script for %s", ticker)}
	}
	delay := m.Delay
	m.mu.Unlock()

	m.Log.add(FetchCall{Source: m.name, Ticker: ticker, Window: window})

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()

	return res.Prices, res.Err
}

// Calls returns how many times Fetch was called.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MaxInFlight returns the highest number of concurrent Fetch calls observed.
func (m *MockFetcher) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxSeen
}

// MockPublisher records write-back calls.
type MockPublisher struct {
	mu        sync.Mutex
	Err       error
	Published map[string][]model.PricePoint
}

// Publish implements source.Publisher.
func (p *MockPublisher) Publish(_ context.Context, ticker string, prices []model.PricePoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Published == nil {
		p.Published = make(map[string][]model.PricePoint)
	}
	p.Published[ticker] = prices
	return p.Err
}

// Count returns how many tickers were published.
func (p *MockPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Published)
}
