package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PoolInterface is the subset of pgxpool.Pool the provider needs. Kept small
// so tests can substitute pgxmock.
type PoolInterface interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PostgresProvider reads daily close series from the daily_prices table.
type PostgresProvider struct {
	pool PoolInterface
}

// NewPostgresProvider creates a provider over an existing pool-compatible
// connection.
func NewPostgresProvider(pool PoolInterface) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// NewPostgresProviderWithPool creates a provider over a pgxpool.Pool.
func NewPostgresProviderWithPool(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// DailyCloses loads the close series for each ticker within [from, to].
// Tickers with no rows are omitted from the result rather than failing the
// whole request.
func (p *PostgresProvider) DailyCloses(ctx context.Context, tickers []string, from, to time.Time) (map[string]Series, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("no database pool available")
	}

	query := `
		SELECT close, price_date
		FROM daily_prices
		WHERE ticker = $1
			AND price_date >= $2
			AND price_date <= $3
		ORDER BY price_date ASC
	`

	out := make(map[string]Series, len(tickers))
	for _, ticker := range tickers {
		series, err := p.querySeries(ctx, query, ticker, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load prices for %s: %w", ticker, err)
		}
		if series.Len() == 0 {
			log.Debug().
				Str("ticker", ticker).
				Time("from", from).
				Time("to", to).
				Msg("No price rows for ticker, omitting from result")
			continue
		}
		out[ticker] = series
	}

	log.Debug().
		Int("requested", len(tickers)).
		Int("resolved", len(out)).
		Msg("Daily closes loaded from database")

	return out, nil
}

func (p *PostgresProvider) querySeries(ctx context.Context, query, ticker string, from, to time.Time) (Series, error) {
	rows, err := p.pool.Query(ctx, query, ticker, from, to)
	if err != nil {
		return Series{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var series Series
	for rows.Next() {
		var close float64
		var date time.Time
		if err := rows.Scan(&close, &date); err != nil {
			return Series{}, fmt.Errorf("failed to scan price row: %w", err)
		}
		series.Closes = append(series.Closes, close)
		series.Dates = append(series.Dates, date)
	}
	if err := rows.Err(); err != nil {
		return Series{}, fmt.Errorf("error iterating price rows: %w", err)
	}
	return series, nil
}

// LatestClose returns the most recent close for a ticker, pgx.ErrNoRows
// surfacing as a descriptive error.
func (p *PostgresProvider) LatestClose(ctx context.Context, ticker string) (float64, error) {
	if p.pool == nil {
		return 0, fmt.Errorf("no database pool available")
	}

	query := `
		SELECT close
		FROM daily_prices
		WHERE ticker = $1
		ORDER BY price_date DESC
		LIMIT 1
	`

	var close float64
	if err := p.pool.QueryRow(ctx, query, ticker).Scan(&close); err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("no price data found for ticker %s", ticker)
		}
		return 0, fmt.Errorf("failed to get latest close: %w", err)
	}
	return close, nil
}
