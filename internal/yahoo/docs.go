package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

type searchResponse struct {
	News []struct {
		UUID                string `json:"uuid"`
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			UpgradeDowngradeHistory struct {
				History []gradeChange `json:"history"`
			} `json:"upgradeDowngradeHistory"`
		} `json:"result"`
		Error *ChartError `json:"error"`
	} `json:"quoteSummary"`
}

type gradeChange struct {
	EpochGradeDate int64  `json:"epochGradeDate"`
	Firm           string `json:"firm"`
	ToGrade        string `json:"toGrade"`
	FromGrade      string `json:"fromGrade"`
	Action         string `json:"action"`
}

// QueryNews returns up to limit recent news articles for symbol.
func (c *FinanceClient) QueryNews(ctx context.Context, symbol string, limit int) ([]model.DocItem, error) {
	u := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=0&newsCount=%d",
		c.baseURL, url.QueryEscape(symbol), limit)
	data, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &apperrors.FetchError{Source: sourceName, Kind: apperrors.KindMalformed, Message: "invalid news payload", Err: err}
	}

	items := make([]model.DocItem, 0, min(limit, len(resp.News)))
	for i, n := range resp.News {
		if i == limit {
			break
		}
		id := n.UUID
		if id == "" {
			id = fmt.Sprintf("news_%d", i)
		}
		items = append(items, model.DocItem{
			ID:          id,
			Title:       n.Title,
			Publisher:   n.Publisher,
			PublishedAt: time.Unix(n.ProviderPublishTime, 0).UTC(),
			URL:         n.Link,
		})
	}
	return items, nil
}

// QueryResearch returns the limit most recent analyst grade changes for symbol,
// newest first.
func (c *FinanceClient) QueryResearch(ctx context.Context, symbol string, limit int) ([]model.DocItem, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=upgradeDowngradeHistory",
		c.baseURL, url.PathEscape(symbol))
	data, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp quoteSummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &apperrors.FetchError{Source: sourceName, Kind: apperrors.KindMalformed, Message: "invalid research payload", Err: err}
	}
	if e := resp.QuoteSummary.Error; e != nil {
		kind := apperrors.KindUnknown
		if e.Code == "Not Found" {
			kind = apperrors.KindNotFound
		}
		return nil, apperrors.NewFetchError(sourceName, kind, "yahoo error: %s: %s", e.Code, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return []model.DocItem{}, nil
	}

	history := resp.QuoteSummary.Result[0].UpgradeDowngradeHistory.History
	items := make([]model.DocItem, 0, min(limit, len(history)))
	for i, g := range history {
		if i == limit {
			break
		}
		firm := g.Firm
		if firm == "" {
			firm = "Unknown"
		}
		items = append(items, model.DocItem{
			ID:          fmt.Sprintf("research_%d", i),
			Title:       fmt.Sprintf("%s - %s", firm, orNA(g.ToGrade)),
			Publisher:   firm,
			PublishedAt: time.Unix(g.EpochGradeDate, 0).UTC(),
			Summary:     fmt.Sprintf("Grade: %s, Previous: %s", orNA(g.ToGrade), orNA(g.FromGrade)),
		})
	}
	return items, nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
