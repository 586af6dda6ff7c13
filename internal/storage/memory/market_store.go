// Package memory provides in-memory store implementations for tests and
// DSN-less local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/coinlake/crypto-etl/internal/store"
)

// MarketStore keeps raw records and price points in process memory.
type MarketStore struct {
	mu     sync.Mutex
	raws   []store.RawRecord
	prices []store.PricePoint
}

// NewMarketStore creates an empty MarketStore.
func NewMarketStore() *MarketStore {
	return &MarketStore{}
}

// AppendBatch appends the batch atomically under the store lock.
func (s *MarketStore) AppendBatch(_ context.Context, raws []store.RawRecord, prices []store.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raws = append(s.raws, raws...)
	s.prices = append(s.prices, prices...)
	return nil
}

// ListPrices returns one page of prices, newest first, plus the unpaged total.
func (s *MarketStore) ListPrices(_ context.Context, filter store.PriceFilter) ([]store.PricePoint, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]store.PricePoint, 0, len(s.prices))
	for _, p := range s.prices {
		if filter.Symbol != "" && !strings.Contains(strings.ToLower(p.Symbol), strings.ToLower(filter.Symbol)) {
			continue
		}
		if filter.Source != "" && p.Source != filter.Source {
			continue
		}
		matched = append(matched, p)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// RawCount reports the number of stored raw records (test helper).
func (s *MarketStore) RawCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.raws)
}

// Raws returns a copy of all stored raw records (test helper).
func (s *MarketStore) Raws() []store.RawRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.RawRecord, len(s.raws))
	copy(out, s.raws)
	return out
}
