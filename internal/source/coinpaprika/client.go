// Package coinpaprika implements the CoinPaprika tickers source.
package coinpaprika

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coinlake/crypto-etl/internal/source"
)

const (
	// SourceName labels checkpoints, runs and stored records.
	SourceName = "coinpaprika"

	defaultBaseURL = "https://api.coinpaprika.com/v1"
	defaultTimeout = 30 * time.Second
)

// HTTPClient describes the HTTP client dependency.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches ticker rows from the CoinPaprika REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
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

// NewClient builds a CoinPaprika client; the API key is optional.
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

// Fetch issues one GET against /tickers. The endpoint has no page-size
// parameter, so the result is truncated to limit client-side.
func (c *Client) Fetch(ctx context.Context, limit int) ([]source.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tickers", http.NoBody)
	if err != nil {
		return nil, &source.FetchError{Source: SourceName, Err: err}
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
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
			Err:    fmt.Errorf("decoding tickers response: %w", err),
		}
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
