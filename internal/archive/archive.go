// Package archive declares the blob store used to keep a replayable copy of
// each run's raw source payload. Implementations live in subpackages.
package archive

import (
	"context"
	"io"
)

// Store writes one archive object and returns its URI.
type Store interface {
	Put(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}
