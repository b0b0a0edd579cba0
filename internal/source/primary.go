package source

import (
	"context"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/github"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// RepositoryClient is the subset of the repository client the primary fetcher uses.
type RepositoryClient interface {
	FetchRows(ctx context.Context, ticker string) ([]github.Row, error)
	PutDataset(ctx context.Context, ticker string, end time.Time, content []byte) (github.CommitResult, error)
}

// Primary fetches bulk datasets from the market-data repository.
type Primary struct {
	client  RepositoryClient
	timeout time.Duration
}

// NewPrimary creates the primary fetcher. timeout bounds each Fetch and Publish.
func NewPrimary(client RepositoryClient, timeout time.Duration) *Primary {
	return &Primary{client: client, timeout: timeout}
}

func (p *Primary) Name() model.Source { return model.SourcePrimary }

// Fetch downloads the latest dataset for ticker. A dataset whose rows all fail
// normalization is reported as Malformed.
func (p *Primary) Fetch(ctx context.Context, ticker string, window *DateWindow) ([]model.PricePoint, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.client.FetchRows(ctx, ticker)
	if err != nil {
		return nil, asFetchError(model.SourcePrimary, err)
	}

	bars := make([]Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, Bar{Date: r.Date, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close})
	}

	points := Normalize(filterWindow(bars, window))
	if len(points) == 0 {
		if len(rows) == 0 {
			return nil, apperrors.NewFetchError(string(model.SourcePrimary), apperrors.KindMalformed, "dataset for %s has no rows", ticker)
		}
		return nil, apperrors.NewFetchError(string(model.SourcePrimary), apperrors.KindNoData, "no usable rows for %s in window", ticker)
	}
	return points, nil
}

// Publish writes prices as the dataset ending on the last point's date.
func (p *Primary) Publish(ctx context.Context, ticker string, prices []model.PricePoint) error {
	if len(prices) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	rows := make([]github.Row, len(prices))
	for i, pp := range prices {
		c := pp.Close
		rows[i] = github.Row{Date: pp.Date, Close: &c}
	}
	_, err := p.client.PutDataset(ctx, ticker, prices[len(prices)-1].Date, github.EncodeCSV(rows))
	return err
}
