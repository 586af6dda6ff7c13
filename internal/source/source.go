// Package source declares the contracts every data source implements: a
// client that fetches raw entities and a normalizer that maps each entity
// into the canonical price schema.
package source

import (
	"context"

	"github.com/coinlake/crypto-etl/internal/store"
)

// Record is one raw entity as returned by a source, keyed by the provider's
// own field names.
type Record map[string]any

// Client fetches raw records from one external source. Implementations must
// return an error rather than silently truncated data when the upstream call
// fails; limit caps the number of records returned.
type Client interface {
	// Name returns the source label used for checkpoints and run records.
	Name() string
	Fetch(ctx context.Context, limit int) ([]Record, error)
}

// Normalizer maps one raw record into the canonical schema. The boolean is
// false when the record cannot be mapped at all (soft failure, counted but
// not fatal); absent optional fields become nil, never zero.
type Normalizer interface {
	Normalize(rec Record) (store.PricePoint, bool)
}
