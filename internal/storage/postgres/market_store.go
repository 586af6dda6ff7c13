package postgres

import (
	"context"
	"fmt"

	"github.com/coinlake/crypto-etl/internal/store"
)

// MarketStore writes raw payloads and normalized prices into Postgres.
type MarketStore struct {
	pool Pool
}

// NewMarketStore constructs a MarketStore over an existing pool.
func NewMarketStore(pool Pool) (*MarketStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &MarketStore{pool: pool}, nil
}

// AppendBatch inserts the batch inside one transaction, so readers only ever
// see whole flushed batches.
func (s *MarketStore) AppendBatch(ctx context.Context, raws []store.RawRecord, prices []store.PricePoint) error {
	if len(raws) == 0 && len(prices) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, raw := range raws {
		_, err := tx.Exec(ctx, `
INSERT INTO raw_crypto_data (source, coin_id, payload, ingested_at)
VALUES ($1, $2, $3, $4)`,
			raw.Source, raw.CoinID, string(raw.Payload), raw.IngestedAt,
		)
		if err != nil {
			return fmt.Errorf("insert raw record: %w", err)
		}
	}
	for _, p := range prices {
		_, err := tx.Exec(ctx, `
INSERT INTO crypto_prices (coin_id, symbol, name, price_usd, market_cap, volume_24h, price_change_24h, ts, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			p.CoinID, p.Symbol, p.Name, p.PriceUSD, p.MarketCap, p.Volume24h, p.Change24h, p.Timestamp, p.Source,
		)
		if err != nil {
			return fmt.Errorf("insert price point: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// ListPrices returns one page of prices, newest first, plus the unpaged total
// matching the filter.
func (s *MarketStore) ListPrices(ctx context.Context, filter store.PriceFilter) ([]store.PricePoint, int64, error) {
	where := `
WHERE ($1 = '' OR symbol ILIKE '%' || $1 || '%')
  AND ($2 = '' OR source = $2)`

	var total int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM crypto_prices"+where, filter.Symbol, filter.Source).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count prices: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
SELECT coin_id, symbol, name, price_usd, market_cap, volume_24h, price_change_24h, ts, source
FROM crypto_prices`+where+`
ORDER BY ts DESC
LIMIT $3 OFFSET $4`,
		filter.Symbol, filter.Source, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list prices: %w", err)
	}
	defer rows.Close()

	var prices []store.PricePoint
	for rows.Next() {
		var p store.PricePoint
		err := rows.Scan(
			&p.CoinID,
			&p.Symbol,
			&p.Name,
			&p.PriceUSD,
			&p.MarketCap,
			&p.Volume24h,
			&p.Change24h,
			&p.Timestamp,
			&p.Source,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan price row: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate price rows: %w", err)
	}
	return prices, total, nil
}
