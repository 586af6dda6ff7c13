package csvfile

import (
	"strings"
	"time"

	"github.com/coinlake/crypto-etl/internal/source"
	"github.com/coinlake/crypto-etl/internal/store"
)

// Column aliases seen across exported CSV dumps, tried in priority order.
var (
	idAliases     = []string{"id", "coin_id", "symbol"}
	symbolAliases = []string{"symbol", "Symbol"}
	nameAliases   = []string{"name", "Name"}
	priceAliases  = []string{"price", "Price", "price_usd", "current_price"}
	mcapAliases   = []string{"market_cap", "Market_Cap", "marketcap"}
	volumeAliases = []string{"volume", "Volume", "volume_24h"}
	changeAliases = []string{"price_change", "Price_Change", "change_24h"}
)

// Normalizer maps CSV rows into the canonical price schema, tolerating the
// column-name variants different exports use.
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

// Normalize returns false when the row resolves neither an id nor a symbol.
func (n *Normalizer) Normalize(rec source.Record) (store.PricePoint, bool) {
	coinID, hasID := source.StringField(rec, idAliases...)
	symbol, hasSymbol := source.StringField(rec, symbolAliases...)
	if !hasID && !hasSymbol {
		return store.PricePoint{}, false
	}
	if coinID == "" {
		coinID = symbol
	}

	point := store.PricePoint{
		CoinID:    coinID,
		Symbol:    strings.ToUpper(symbol),
		PriceUSD:  source.ClampRange(source.FloatField(rec, priceAliases...)),
		MarketCap: source.ClampRange(source.FloatField(rec, mcapAliases...)),
		Volume24h: source.ClampRange(source.FloatField(rec, volumeAliases...)),
		Change24h: source.ClampRange(source.FloatField(rec, changeAliases...)),
		Timestamp: n.now().UTC(),
		Source:    SourceName,
	}
	if name, ok := source.StringField(rec, nameAliases...); ok {
		point.Name = &name
	}
	return point, true
}
