package coingecko

import (
	"strings"
	"time"

	"github.com/coinlake/crypto-etl/internal/source"
	"github.com/coinlake/crypto-etl/internal/store"
)

// Normalizer maps CoinGecko market rows into the canonical price schema.
// CoinGecko returns flat fields (current_price, market_cap, total_volume).
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer builds a Normalizer stamping observations with the given
// clock (time.Now when nil).
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize returns false when the row carries neither an id nor a symbol;
// every other omission degrades to an absent field.
func (n *Normalizer) Normalize(rec source.Record) (store.PricePoint, bool) {
	coinID, hasID := source.StringField(rec, "id")
	symbol, hasSymbol := source.StringField(rec, "symbol")
	if !hasID && !hasSymbol {
		return store.PricePoint{}, false
	}
	if coinID == "" {
		coinID = symbol
	}

	point := store.PricePoint{
		CoinID:    coinID,
		Symbol:    strings.ToUpper(symbol),
		PriceUSD:  source.ClampRange(source.FloatField(rec, "current_price")),
		MarketCap: source.ClampRange(source.FloatField(rec, "market_cap")),
		Volume24h: source.ClampRange(source.FloatField(rec, "total_volume")),
		Change24h: source.ClampRange(source.FloatField(rec, "price_change_percentage_24h")),
		Timestamp: n.now().UTC(),
		Source:    SourceName,
	}
	if name, ok := source.StringField(rec, "name"); ok {
		point.Name = &name
	}
	return point, true
}
