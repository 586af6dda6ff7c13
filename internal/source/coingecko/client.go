// Package coingecko implements the CoinGecko markets source.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/coinlake/crypto-etl/internal/source"
)

const (
	// SourceName labels checkpoints, runs and stored records.
	SourceName = "coingecko"

	defaultBaseURL = "https://api.coingecko.com/api/v3"
	// maxPerPage is the largest page CoinGecko serves on /coins/markets.
	maxPerPage = 250

	defaultTimeout = 30 * time.Second
)

// HTTPClient describes the HTTP client dependency.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches market rows from the CoinGecko REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (testing against httptest servers).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient builds a CoinGecko client. The API key is optional; the public
// tier works without one.
func NewClient(apiKey string, options ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Name returns the source label.
func (c *Client) Name() string { return SourceName }

// Fetch issues one GET against /coins/markets ordered by market cap. The page
// size is capped at the provider maximum and the result truncated to limit.
func (c *Client) Fetch(ctx context.Context, limit int) ([]source.Record, error) {
	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(min(limit, maxPerPage)))
	query.Set("page", "1")
	query.Set("sparkline", "false")

	reqURL := fmt.Sprintf("%s/coins/markets?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, &source.FetchError{Source: SourceName, Err: err}
	}
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &source.FetchError{Source: SourceName, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &source.FetchError{
			Source: SourceName,
			Err:    fmt.Errorf("unexpected status code: %d", res.StatusCode),
		}
	}

	var rows []source.Record
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, &source.FetchError{
			Source: SourceName,
			Err:    fmt.Errorf("decoding markets response: %w", err),
		}
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
