package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/alpinist/internal/marketdata"
	"github.com/ajitpratap0/alpinist/internal/portfolio"
)

func TestVaR(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.03, -0.01, 0.02}

	// mean = 0.006, sample std = 0.0207364
	v := VaR(returns, 0.95)
	assert.InDelta(t, 0.0281114, v, 1e-6)

	t.Run("unknown confidence falls back to 95", func(t *testing.T) {
		assert.Equal(t, VaR(returns, 0.95), VaR(returns, 0.87))
	})

	t.Run("known quantiles ordered", func(t *testing.T) {
		assert.Less(t, VaR(returns, 0.90), VaR(returns, 0.95))
		assert.Less(t, VaR(returns, 0.95), VaR(returns, 0.99))
	})

	t.Run("insufficient data", func(t *testing.T) {
		assert.Zero(t, VaR(nil, 0.95))
		assert.Zero(t, VaR([]float64{0.01}, 0.95))
	})
}

func TestCVaR(t *testing.T) {
	t.Run("empty tail collapses to VaR", func(t *testing.T) {
		returns := []float64{0.01, -0.02, 0.03, -0.01, 0.02}
		assert.Equal(t, VaR(returns, 0.95), CVaR(returns, 0.95))
	})

	t.Run("tail losses averaged", func(t *testing.T) {
		returns := make([]float64, 0, 11)
		for i := 0; i < 10; i++ {
			returns = append(returns, 0.001)
		}
		returns = append(returns, -0.10)

		v := VaR(returns, 0.95)
		cv := CVaR(returns, 0.95)
		assert.InDelta(t, 0.10, cv, 1e-9)
		assert.GreaterOrEqual(t, cv, v)
	})

	t.Run("insufficient data", func(t *testing.T) {
		assert.Zero(t, CVaR([]float64{-0.5}, 0.95))
	})
}

func TestMaxDrawdown(t *testing.T) {
	t.Run("monotonic gains have no drawdown", func(t *testing.T) {
		assert.Zero(t, MaxDrawdown([]float64{0.01, 0.02, 0.005, 0.03}))
	})

	t.Run("halve then recover", func(t *testing.T) {
		dd := MaxDrawdown([]float64{-0.5, 1.0})
		assert.InDelta(t, 0.5, dd, 1e-12)
	})

	t.Run("trough after later peak", func(t *testing.T) {
		// climbs to 1.1, falls to 0.88: drawdown 0.2
		dd := MaxDrawdown([]float64{0.10, -0.20})
		assert.InDelta(t, 0.2, dd, 1e-12)
	})

	t.Run("insufficient data", func(t *testing.T) {
		assert.Zero(t, MaxDrawdown([]float64{-0.9}))
	})
}

func TestAnnualizedVolatility(t *testing.T) {
	vol := AnnualizedVolatility([]float64{0.01, -0.01})
	assert.InDelta(t, 0.2244994, vol, 1e-6)

	assert.Zero(t, AnnualizedVolatility([]float64{0.01}))
}

func TestSharpeRatio(t *testing.T) {
	e := NewEngine(DefaultConfig())

	t.Run("zero volatility yields zero", func(t *testing.T) {
		assert.Zero(t, e.SharpeRatio([]float64{0.01, 0.01, 0.01}))
	})

	t.Run("negative excess return", func(t *testing.T) {
		// mean 0, annualized vol 0.2244994, rf 0.02
		s := e.SharpeRatio([]float64{0.01, -0.01})
		assert.InDelta(t, -0.0890871, s, 1e-6)
	})

	t.Run("custom risk free rate", func(t *testing.T) {
		hot := NewEngine(Config{RiskFreeRate: 0.05})
		assert.Less(t, hot.SharpeRatio([]float64{0.01, -0.01}), e.SharpeRatio([]float64{0.01, -0.01}))
	})

	t.Run("zero risk free rate is honored", func(t *testing.T) {
		free := NewEngine(Config{RiskFreeRate: 0})
		returns := []float64{0.01, -0.005}
		// mean 0.0025, annualized vol 0.0075*sqrt(504)
		assert.InDelta(t, 3.74166, free.SharpeRatio(returns), 1e-4)
		assert.Greater(t, free.SharpeRatio(returns), e.SharpeRatio(returns))
	})
}

func TestDiversificationScore(t *testing.T) {
	up := []float64{0.01, 0.02, -0.01, 0.03}
	down := []float64{-0.01, -0.02, 0.01, -0.03}

	t.Run("single instrument", func(t *testing.T) {
		score := DiversificationScore(map[string]float64{"AAPL": 1.0}, map[string][]float64{"AAPL": up})
		assert.Equal(t, 1.0, score)
	})

	t.Run("perfectly correlated pair", func(t *testing.T) {
		score := DiversificationScore(
			map[string]float64{"AAPL": 0.5, "MSFT": 0.5},
			map[string][]float64{"AAPL": up, "MSFT": up},
		)
		assert.InDelta(t, 0.0, score, 1e-12)
	})

	t.Run("anti correlated pair clamps to one", func(t *testing.T) {
		score := DiversificationScore(
			map[string]float64{"AAPL": 0.5, "TLT": 0.5},
			map[string][]float64{"AAPL": up, "TLT": down},
		)
		assert.Equal(t, 1.0, score)
	})

	t.Run("no return data", func(t *testing.T) {
		score := DiversificationScore(
			map[string]float64{"AAPL": 0.5, "MSFT": 0.5},
			map[string][]float64{},
		)
		assert.Equal(t, 1.0, score)
	})

	t.Run("empty weights", func(t *testing.T) {
		assert.Equal(t, 0.0, DiversificationScore(nil, nil))
	})

	t.Run("bounded", func(t *testing.T) {
		score := DiversificationScore(
			map[string]float64{"A": 0.4, "B": 0.3, "C": 0.3},
			map[string][]float64{"A": up, "B": down, "C": {0.005, -0.002, 0.01, 0.0}},
		)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	})
}

func TestPortfolioReturns(t *testing.T) {
	seriesA := marketdata.Series{
		Dates:  []time.Time{day("2024-01-02"), day("2024-01-03"), day("2024-01-04")},
		Closes: []float64{100, 102, 101},
	}
	seriesB := marketdata.Series{
		Dates:  []time.Time{day("2024-01-02"), day("2024-01-03"), day("2024-01-04")},
		Closes: []float64{50, 50, 55},
	}

	t.Run("weighted combination", func(t *testing.T) {
		returns, err := PortfolioReturns(
			map[string]marketdata.Series{"AAPL": seriesA, "MSFT": seriesB},
			map[string]float64{"AAPL": 0.6, "MSFT": 0.4},
		)
		require.NoError(t, err)
		require.Len(t, returns, 2)
		assert.InDelta(t, 0.6*0.02+0.4*0.0, returns[0], 1e-12)
		assert.InDelta(t, 0.6*(-1.0/102)+0.4*0.1, returns[1], 1e-12)
	})

	t.Run("missing instrument renormalizes", func(t *testing.T) {
		returns, err := PortfolioReturns(
			map[string]marketdata.Series{"AAPL": seriesA},
			map[string]float64{"AAPL": 0.6, "MSFT": 0.4},
		)
		require.NoError(t, err)
		require.Len(t, returns, 2)
		assert.InDelta(t, 0.02, returns[0], 1e-12)
	})

	t.Run("series of different length align from the tail", func(t *testing.T) {
		long := marketdata.Series{
			Dates:  []time.Time{day("2024-01-01"), day("2024-01-02"), day("2024-01-03"), day("2024-01-04")},
			Closes: []float64{90, 100, 102, 101},
		}
		returns, err := PortfolioReturns(
			map[string]marketdata.Series{"AAPL": long, "MSFT": seriesB},
			map[string]float64{"AAPL": 0.5, "MSFT": 0.5},
		)
		require.NoError(t, err)
		assert.Len(t, returns, 2)
	})

	t.Run("no data at all", func(t *testing.T) {
		_, err := PortfolioReturns(map[string]marketdata.Series{}, map[string]float64{"AAPL": 1.0})
		require.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("zero weights only", func(t *testing.T) {
		_, err := PortfolioReturns(
			map[string]marketdata.Series{"AAPL": seriesA},
			map[string]float64{"AAPL": 0},
		)
		require.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestEngineAssess(t *testing.T) {
	asOf := day("2024-06-28")
	start := asOf.AddDate(0, 0, -400)
	provider := marketdata.NewStaticProvider(map[string]marketdata.Series{
		"AAPL": marketdata.SyntheticSeries(start, 260, 180, 12, 0),
		"MSFT": marketdata.SyntheticSeries(start, 260, 400, 25, 1.3),
	})

	alloc := portfolio.Allocation{
		Positions: []portfolio.Position{
			{Ticker: "AAPL", Weight: 0.55, Reasoning: "core holding"},
			{Ticker: "MSFT", Weight: 0.45, Reasoning: "core holding"},
		},
	}

	e := NewEngine(DefaultConfig())
	got, err := e.Assess(context.Background(), provider, alloc, asOf)
	require.NoError(t, err)

	assert.Positive(t, got.DataPoints)
	assert.GreaterOrEqual(t, got.Metrics.CVaR95, got.Metrics.VaR95)
	assert.GreaterOrEqual(t, got.Metrics.MaxDrawdown, 0.0)
	assert.Positive(t, got.Metrics.AnnualizedVolatility)
	assert.GreaterOrEqual(t, got.Metrics.DiversificationScore, 0.0)
	assert.LessOrEqual(t, got.Metrics.DiversificationScore, 1.0)

	t.Run("rounded to four decimals", func(t *testing.T) {
		for _, v := range []float64{
			got.Metrics.VaR95, got.Metrics.CVaR95, got.Metrics.MaxDrawdown,
			got.Metrics.AnnualizedVolatility, got.Metrics.SharpeRatio,
			got.Metrics.DiversificationScore,
		} {
			assert.InDelta(t, v, round4(v), 1e-12)
		}
	})

	t.Run("no price history degrades to zero metrics", func(t *testing.T) {
		empty := marketdata.NewStaticProvider(nil)
		got, err := e.Assess(context.Background(), empty, alloc, asOf)
		require.NoError(t, err)
		assert.Zero(t, got.DataPoints)
		assert.Zero(t, got.Metrics.VaR95)
		assert.Zero(t, got.Metrics.AnnualizedVolatility)
	})
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
