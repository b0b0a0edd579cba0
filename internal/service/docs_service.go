package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/github"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// DocsFetcher retrieves news and analyst research for a quote symbol.
type DocsFetcher interface {
	QueryNews(ctx context.Context, symbol string, limit int) ([]model.DocItem, error)
	QueryResearch(ctx context.Context, symbol string, limit int) ([]model.DocItem, error)
}

// DocumentPublisher commits a document snapshot to the primary repository.
type DocumentPublisher interface {
	PutDocument(ctx context.Context, docType, ticker string, day time.Time, content []byte) (github.CommitResult, error)
}

// DocsService reads ticker documents from the quote source and archives them
// in the primary repository next to the price datasets.
type DocsService struct {
	registry  AssetRegistry
	fetcher   DocsFetcher
	publisher DocumentPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewDocsService creates a DocsService. Archiving stays disabled until a
// publisher is set.
func NewDocsService(registry AssetRegistry, fetcher DocsFetcher, logger *slog.Logger) *DocsService {
	return &DocsService{
		registry: registry,
		fetcher:  fetcher,
		logger:   logger,
		now:      time.Now,
	}
}

// WithPublisher enables Save.
func (s *DocsService) WithPublisher(p DocumentPublisher) *DocsService {
	s.publisher = p
	return s
}

// WithClock overrides the time source.
func (s *DocsService) WithClock(now func() time.Time) *DocsService {
	s.now = now
	return s
}

// Fetch returns the latest news and research for assetName. The two lookups
// run concurrently and fail independently; a failed one yields an empty list.
// An error is returned only when both fail.
func (s *DocsService) Fetch(ctx context.Context, assetName string) (*model.AssetDocs, error) {
	asset, err := s.registry.Get(assetName)
	if err != nil {
		return nil, err
	}
	ticker := asset.TickerFor(model.SourceSecondary)

	var (
		news, research       []model.DocItem
		newsErr, researchErr error
		g                    errgroup.Group
	)
	g.Go(func() error {
		news, newsErr = s.fetcher.QueryNews(ctx, ticker, model.MaxDocItems)
		return nil
	})
	g.Go(func() error {
		research, researchErr = s.fetcher.QueryResearch(ctx, ticker, model.MaxDocItems)
		return nil
	})
	_ = g.Wait()

	if newsErr != nil && researchErr != nil {
		return nil, newsErr
	}
	if newsErr != nil {
		s.logger.Warn("news lookup failed", "asset", asset.Name, "ticker", ticker, "error", newsErr)
		news = nil
	}
	if researchErr != nil {
		s.logger.Warn("research lookup failed", "asset", asset.Name, "ticker", ticker, "error", researchErr)
		research = nil
	}

	return &model.AssetDocs{
		AssetName: asset.Name,
		Ticker:    ticker,
		News:      orEmpty(news),
		Research:  orEmpty(research),
	}, nil
}

// Save writes items as today's docType snapshot for assetName. With no items,
// the current documents of that type are fetched and saved instead.
func (s *DocsService) Save(ctx context.Context, assetName string, docType model.DocType, items []model.DocItem) (*model.DocCommit, error) {
	if !docType.Valid() {
		return nil, apperrors.ErrInvalidDocType
	}
	if s.publisher == nil {
		return nil, apperrors.ErrPublishingDisabled
	}
	asset, err := s.registry.Get(assetName)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		symbol := asset.TickerFor(model.SourceSecondary)
		if docType == model.DocNews {
			items, err = s.fetcher.QueryNews(ctx, symbol, model.MaxDocItems)
		} else {
			items, err = s.fetcher.QueryResearch(ctx, symbol, model.MaxDocItems)
		}
		if err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	content, err := json.MarshalIndent(model.DocSnapshot{AsOf: now, Items: orEmpty(items)}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s snapshot: %w", docType, err)
	}

	ticker := asset.TickerFor(model.SourcePrimary)
	res, err := s.publisher.PutDocument(ctx, string(docType), ticker, now, content)
	if err != nil {
		return nil, err
	}

	s.logger.Info("archived documents",
		"asset", asset.Name,
		"type", docType,
		"items", len(items),
		"path", res.Path,
	)
	return &model.DocCommit{
		AssetName: asset.Name,
		Type:      docType,
		Path:      res.Path,
		SHA:       res.SHA,
		URL:       res.URL,
	}, nil
}

func orEmpty(items []model.DocItem) []model.DocItem {
	if items == nil {
		return []model.DocItem{}
	}
	return items
}
