package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/coinlake/crypto-etl/internal/store"
)

func TestAppendBatchCommitsOneTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewMarketStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	name := "Bitcoin"
	price := 42000.0

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO raw_crypto_data").
		WithArgs("coingecko", "bitcoin", `{"id":"bitcoin"}`, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO crypto_prices").
		WithArgs("bitcoin", "BTC", &name, &price, (*float64)(nil), (*float64)(nil), (*float64)(nil), now, "coingecko").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = s.AppendBatch(context.Background(),
		[]store.RawRecord{{Source: "coingecko", CoinID: "bitcoin", Payload: []byte(`{"id":"bitcoin"}`), IngestedAt: now}},
		[]store.PricePoint{{CoinID: "bitcoin", Symbol: "BTC", Name: &name, PriceUSD: &price, Timestamp: now, Source: "coingecko"}},
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendBatchEmptyIsNoop(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewMarketStore(mock)
	require.NoError(t, err)

	require.NoError(t, s.AppendBatch(context.Background(), nil, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendBatchRollsBackOnInsertFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewMarketStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO raw_crypto_data").
		WithArgs("csv", "bitcoin", "{}", now).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err = s.AppendBatch(context.Background(),
		[]store.RawRecord{{Source: "csv", CoinID: "bitcoin", Payload: []byte("{}"), IngestedAt: now}},
		nil,
	)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPricesReturnsPageAndTotal(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewMarketStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	price := 42000.0

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM crypto_prices`).
		WithArgs("BTC", "coingecko").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery("SELECT coin_id, symbol, name, price_usd").
		WithArgs("BTC", "coingecko", 10, 0).
		WillReturnRows(pgxmock.
			NewRows([]string{
				"coin_id", "symbol", "name", "price_usd", "market_cap",
				"volume_24h", "price_change_24h", "ts", "source",
			}).
			AddRow("bitcoin", "BTC", nil, &price, nil, nil, nil, now, "coingecko"))

	prices, total, err := s.ListPrices(context.Background(), store.PriceFilter{
		Symbol: "BTC", Source: "coingecko", Limit: 10,
	})
	require.NoError(t, err)
	require.EqualValues(t, 7, total)
	require.Len(t, prices, 1)
	require.Equal(t, "bitcoin", prices[0].CoinID)
	require.Equal(t, 42000.0, *prices[0].PriceUSD)
	require.Nil(t, prices[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
