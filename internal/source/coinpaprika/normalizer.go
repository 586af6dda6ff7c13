package coinpaprika

import (
	"time"

	"github.com/coinlake/crypto-etl/internal/source"
	"github.com/coinlake/crypto-etl/internal/store"
)

// Normalizer maps CoinPaprika ticker rows into the canonical price schema.
// CoinPaprika nests the USD figures under quotes.USD.
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

// Normalize returns false when the row carries neither an id nor a symbol.
// A missing quotes.USD block degrades to absent numeric fields.
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
		Symbol:    symbol,
		Timestamp: n.now().UTC(),
		Source:    SourceName,
	}
	if name, ok := source.StringField(rec, "name"); ok {
		point.Name = &name
	}
	if usd, ok := source.NestedMap(rec, "quotes", "USD"); ok {
		point.PriceUSD = source.ClampRange(source.FloatField(usd, "price"))
		point.MarketCap = source.ClampRange(source.FloatField(usd, "market_cap"))
		point.Volume24h = source.ClampRange(source.FloatField(usd, "volume_24h"))
		point.Change24h = source.ClampRange(source.FloatField(usd, "percent_change_24h"))
	}
	return point, true
}
