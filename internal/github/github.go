// Package github is a client for the market-data repository that serves as the
// primary bulk source. Datasets live at data/{ticker}/{end-date}.csv and document
// snapshots at {news|research}/{ticker}/{date}.json.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/httputil"
)

const sourceName = "repository"

// DefaultBaseURL is the public GitHub REST API host.
const DefaultBaseURL = "https://api.github.com"

// Client reads and writes dataset files through the repository contents API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	branch     string
	token      string
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithToken sets the bearer token used for every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithBranch selects the branch datasets are read from and written to.
func WithBranch(branch string) Option {
	return func(c *Client) { c.branch = branch }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a client for owner/repo.
func NewClient(owner, repo string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    DefaultBaseURL,
		owner:      owner,
		repo:       repo,
		branch:     "main",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DatasetPath returns the repository path of the dataset ending on end.
func DatasetPath(ticker string, end time.Time) string {
	return fmt.Sprintf("data/%s/%s.csv", ticker, end.Format("2006-01-02"))
}

// DocumentPath returns the repository path of a docType snapshot taken on day.
func DocumentPath(docType, ticker string, day time.Time) string {
	return fmt.Sprintf("%s/%s/%s.json", docType, ticker, day.Format("2006-01-02"))
}

// ListDatasets returns the dataset files stored for ticker.
// A missing directory yields a NotFound FetchError.
func (c *Client) ListDatasets(ctx context.Context, ticker string) ([]ContentEntry, error) {
	resp, err := c.do(ctx, http.MethodGet, c.contentsURL("data/"+ticker), nil, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httputil.ClassifyStatus(sourceName, resp, time.Now())
	}

	var entries []ContentEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &apperrors.FetchError{Source: sourceName, Kind: apperrors.KindMalformed, Message: "invalid contents listing", Err: err}
	}

	datasets := entries[:0]
	for _, e := range entries {
		if e.Type == "file" && strings.HasSuffix(strings.ToLower(e.Name), ".csv") {
			datasets = append(datasets, e)
		}
	}
	return datasets, nil
}

// LatestDataset picks the dataset with the greatest file name. Files are named
// by ISO end date, so lexical order is chronological.
func (c *Client) LatestDataset(ctx context.Context, ticker string) (ContentEntry, error) {
	datasets, err := c.ListDatasets(ctx, ticker)
	if err != nil {
		return ContentEntry{}, err
	}
	if len(datasets) == 0 {
		return ContentEntry{}, apperrors.NewFetchError(sourceName, apperrors.KindNotFound, "no dataset for %s", ticker)
	}
	sort.Slice(datasets, func(i, j int) bool { return datasets[i].Name < datasets[j].Name })
	return datasets[len(datasets)-1], nil
}

// Download returns the raw content of a dataset file.
func (c *Client) Download(ctx context.Context, entry ContentEntry) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, c.contentsURL(entry.Path), nil, "application/vnd.github.raw+json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httputil.ClassifyStatus(sourceName, resp, time.Now())
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, httputil.ClassifyTransportError(sourceName, err)
	}
	return data, nil
}

// FetchRows looks up the latest dataset for ticker, downloads it and parses its rows.
func (c *Client) FetchRows(ctx context.Context, ticker string) ([]Row, error) {
	entry, err := c.LatestDataset(ctx, ticker)
	if err != nil {
		return nil, err
	}
	data, err := c.Download(ctx, entry)
	if err != nil {
		return nil, err
	}
	rows, err := ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, &apperrors.FetchError{Source: sourceName, Kind: apperrors.KindMalformed, Message: "invalid dataset " + entry.Path, Err: err}
	}
	return rows, nil
}

// PutDataset creates or updates data/{ticker}/{end}.csv with content.
func (c *Client) PutDataset(ctx context.Context, ticker string, end time.Time, content []byte) (CommitResult, error) {
	day := end.Format("2006-01-02")
	return c.putContent(ctx, DatasetPath(ticker, end), fmt.Sprintf("feat: %s prices to %s", ticker, day), content)
}

// PutDocument creates or updates {docType}/{ticker}/{day}.json with content.
func (c *Client) PutDocument(ctx context.Context, docType, ticker string, day time.Time, content []byte) (CommitResult, error) {
	date := day.Format("2006-01-02")
	return c.putContent(ctx, DocumentPath(docType, ticker, day), fmt.Sprintf("feat: %s %s to %s", ticker, docType, date), content)
}

// putContent commits content to path, updating the file when it already exists.
func (c *Client) putContent(ctx context.Context, path, message string, content []byte) (CommitResult, error) {
	sha, err := c.fileSHA(ctx, path)
	if err != nil {
		return CommitResult{}, err
	}

	body, err := json.Marshal(putContentRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
		SHA:     sha,
	})
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to encode commit request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, c.contentsPath(path), bytes.NewReader(body), "application/vnd.github+json")
	if err != nil {
		return CommitResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return CommitResult{}, httputil.ClassifyStatus(sourceName, resp, time.Now())
	}

	var out putContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return CommitResult{}, &apperrors.FetchError{Source: sourceName, Kind: apperrors.KindMalformed, Message: "invalid commit response", Err: err}
	}
	return CommitResult{SHA: out.Commit.SHA, Path: out.Content.Path, URL: out.Content.HTMLURL}, nil
}

// fileSHA returns the blob sha of path, or "" when the file does not exist yet.
func (c *Client) fileSHA(ctx context.Context, path string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.contentsURL(path), nil, "application/vnd.github+json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var entry ContentEntry
		if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
			return "", &apperrors.FetchError{Source: sourceName, Kind: apperrors.KindMalformed, Message: "invalid file metadata", Err: err}
		}
		return entry.SHA, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", httputil.ClassifyStatus(sourceName, resp, time.Now())
	}
}

func (c *Client) contentsPath(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, url.PathEscape(c.owner), url.PathEscape(c.repo), escapePath(path))
}

func (c *Client) contentsURL(path string) string {
	return c.contentsPath(path) + "?ref=" + url.QueryEscape(c.branch)
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader, accept string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, httputil.ClassifyTransportError(sourceName, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &apperrors.FetchError{Source: sourceName, Kind: apperrors.KindUnknown, Message: "invalid request", Err: err}
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", httputil.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, httputil.ClassifyTransportError(sourceName, err)
	}
	return resp, nil
}
