package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresProviderDailyCloses(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider := NewPostgresProvider(mock)

	from := day("2024-01-01")
	to := day("2024-01-31")

	rows := pgxmock.NewRows([]string{"close", "price_date"}).
		AddRow(100.0, day("2024-01-02")).
		AddRow(102.0, day("2024-01-03")).
		AddRow(101.0, day("2024-01-04"))

	mock.ExpectQuery("SELECT close, price_date FROM daily_prices").
		WithArgs("NESN.SW", from, to).
		WillReturnRows(rows)

	got, err := provider.DailyCloses(context.Background(), []string{"NESN.SW"}, from, to)

	require.NoError(t, err)
	require.Len(t, got, 1)
	series := got["NESN.SW"]
	assert.Equal(t, 3, series.Len())
	assert.Equal(t, 100.0, series.Closes[0])
	assert.InDelta(t, 0.02, series.Returns()[0], 1e-9)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProviderOmitsEmptyTickers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider := NewPostgresProvider(mock)

	from := day("2024-01-01")
	to := day("2024-01-31")

	mock.ExpectQuery("SELECT close, price_date FROM daily_prices").
		WithArgs("NESN.SW", from, to).
		WillReturnRows(pgxmock.NewRows([]string{"close", "price_date"}).
			AddRow(100.0, day("2024-01-02")))
	mock.ExpectQuery("SELECT close, price_date FROM daily_prices").
		WithArgs("DELISTED.SW", from, to).
		WillReturnRows(pgxmock.NewRows([]string{"close", "price_date"}))

	got, err := provider.DailyCloses(context.Background(), []string{"NESN.SW", "DELISTED.SW"}, from, to)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotContains(t, got, "DELISTED.SW")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProviderQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider := NewPostgresProvider(mock)

	mock.ExpectQuery("SELECT close, price_date FROM daily_prices").
		WithArgs("NESN.SW", day("2024-01-01"), day("2024-01-31")).
		WillReturnError(errors.New("connection reset"))

	_, err = provider.DailyCloses(context.Background(), []string{"NESN.SW"}, day("2024-01-01"), day("2024-01-31"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "NESN.SW")
}

func TestPostgresProviderNilPool(t *testing.T) {
	provider := NewPostgresProvider(nil)
	_, err := provider.DailyCloses(context.Background(), []string{"A"}, time.Now().AddDate(0, -1, 0), time.Now())
	assert.Error(t, err)
}

func TestPostgresProviderLatestClose(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider := NewPostgresProvider(mock)

	mock.ExpectQuery("SELECT close FROM daily_prices").
		WithArgs("ROG.SW").
		WillReturnRows(pgxmock.NewRows([]string{"close"}).AddRow(271.5))

	close, err := provider.LatestClose(context.Background(), "ROG.SW")
	require.NoError(t, err)
	assert.Equal(t, 271.5, close)

	require.NoError(t, mock.ExpectationsWereMet())
}
