package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringFieldAliasOrder(t *testing.T) {
	t.Parallel()

	rec := Record{"coin_id": "btc-bitcoin", "symbol": "BTC"}
	got, ok := StringField(rec, "id", "coin_id", "symbol")
	require.True(t, ok)
	require.Equal(t, "btc-bitcoin", got)
}

func TestStringFieldSkipsEmptyAndNil(t *testing.T) {
	t.Parallel()

	rec := Record{"id": "  ", "coin_id": nil, "symbol": "eth"}
	got, ok := StringField(rec, "id", "coin_id", "symbol")
	require.True(t, ok)
	require.Equal(t, "eth", got)

	_, ok = StringField(Record{}, "id", "symbol")
	require.False(t, ok)
}

func TestStringFieldRendersNumbers(t *testing.T) {
	t.Parallel()

	got, ok := StringField(Record{"id": float64(42)}, "id")
	require.True(t, ok)
	require.Equal(t, "42", got)
}

func TestFloatFieldParsesStrings(t *testing.T) {
	t.Parallel()

	got := FloatField(Record{"price": "42000.5"}, "price")
	require.NotNil(t, got)
	require.Equal(t, 42000.5, *got)

	require.Nil(t, FloatField(Record{"price": "n/a"}, "price"))
	require.Nil(t, FloatField(Record{}, "price"))
}

func TestFloatFieldAliasOrder(t *testing.T) {
	t.Parallel()

	rec := Record{"Price": 2.0, "price_usd": 3.0}
	got := FloatField(rec, "price", "Price", "price_usd")
	require.NotNil(t, got)
	require.Equal(t, 2.0, *got)
}

func TestClampRange(t *testing.T) {
	t.Parallel()

	neg := -100.0
	ok := 42000.0
	huge := 2e15

	require.Nil(t, ClampRange(&neg))
	require.Nil(t, ClampRange(&huge))
	require.Nil(t, ClampRange(nil))
	require.Equal(t, &ok, ClampRange(&ok))

	zero := 0.0
	require.Equal(t, &zero, ClampRange(&zero))
}

func TestNestedMap(t *testing.T) {
	t.Parallel()

	rec := Record{
		"quotes": map[string]any{
			"USD": map[string]any{"price": 101.5},
		},
	}
	usd, ok := NestedMap(rec, "quotes", "USD")
	require.True(t, ok)
	require.Equal(t, 101.5, usd["price"])

	_, ok = NestedMap(rec, "quotes", "EUR")
	require.False(t, ok)
	_, ok = NestedMap(Record{"quotes": "oops"}, "quotes")
	require.False(t, ok)
}
