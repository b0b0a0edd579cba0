package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/github"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// MockDocsClient serves canned news and research lists.
type MockDocsClient struct {
	mu          sync.Mutex
	News        []model.DocItem
	Research    []model.DocItem
	NewsErr     error
	ResearchErr error
	symbols     []string
}

// QueryNews returns News, or NewsErr when set.
func (m *MockDocsClient) QueryNews(_ context.Context, symbol string, limit int) ([]model.DocItem, error) {
	m.record(symbol)
	if m.NewsErr != nil {
		return nil, m.NewsErr
	}
	return capItems(m.News, limit), nil
}

// QueryResearch returns Research, or ResearchErr when set.
func (m *MockDocsClient) QueryResearch(_ context.Context, symbol string, limit int) ([]model.DocItem, error) {
	m.record(symbol)
	if m.ResearchErr != nil {
		return nil, m.ResearchErr
	}
	return capItems(m.Research, limit), nil
}

// Symbols returns every symbol queried, in call order.
func (m *MockDocsClient) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.symbols))
	copy(out, m.symbols)
	return out
}

func (m *MockDocsClient) record(symbol string) {
	m.mu.Lock()
	m.symbols = append(m.symbols, symbol)
	m.mu.Unlock()
}

func capItems(items []model.DocItem, limit int) []model.DocItem {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

// DocumentWrite is one recorded PutDocument call.
type DocumentWrite struct {
	DocType string
	Ticker  string
	Day     time.Time
	Content []byte
}

// MockDocumentPublisher records document commits instead of writing them.
type MockDocumentPublisher struct {
	mu     sync.Mutex
	Err    error
	writes []DocumentWrite
}

// PutDocument records the write and returns a commit at the path the
// repository client would use.
func (p *MockDocumentPublisher) PutDocument(_ context.Context, docType, ticker string, day time.Time, content []byte) (github.CommitResult, error) {
	if p.Err != nil {
		return github.CommitResult{}, p.Err
	}
	p.mu.Lock()
	p.writes = append(p.writes, DocumentWrite{DocType: docType, Ticker: ticker, Day: day, Content: content})
	p.mu.Unlock()

	path := github.DocumentPath(docType, ticker, day)
	return github.CommitResult{SHA: "sha-" + path, Path: path, URL: "https://example.test/" + path}, nil
}

// Writes returns the recorded commits in order.
func (p *MockDocumentPublisher) Writes() []DocumentWrite {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]DocumentWrite, len(p.writes))
	copy(out, p.writes)
	return out
}
