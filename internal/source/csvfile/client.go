// Package csvfile implements the file-backed CSV source.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/coinlake/crypto-etl/internal/source"
)

// SourceName labels checkpoints, runs and stored records.
const SourceName = "csv"

// Client reads one CSV file into header-keyed records. The whole file is
// loaded per fetch; there is no incremental tailing.
type Client struct {
	path string
}

// NewClient builds a Client over the given file path. The path is only
// checked at fetch time so a file dropped between runs is picked up.
func NewClient(path string) *Client {
	return &Client{path: path}
}

// Name returns the source label.
func (c *Client) Name() string { return SourceName }

// Fetch reads every row of the file, keyed by the header line, truncated to
// limit. A missing file is a NotFoundError; any other read problem is a
// FetchError.
func (c *Client) Fetch(ctx context.Context, limit int) ([]source.Record, error) {
	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		return nil, &source.NotFoundError{Source: SourceName, Path: c.path}
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, &source.FetchError{Source: SourceName, Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &source.FetchError{
			Source: SourceName,
			Err:    fmt.Errorf("read %s: %w", c.path, err),
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &source.FetchError{Source: SourceName, Err: err}
	}

	header := rows[0]
	records := make([]source.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(records) >= limit {
			break
		}
		rec := make(source.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
