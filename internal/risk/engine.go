// Package risk computes the quantitative risk profile of a portfolio
// allocation: VaR, CVaR, drawdown, volatility, Sharpe ratio, diversification,
// and historical stress scenarios. Every computation is deterministic and
// reproducible bit-for-bit given identical return input.
package risk

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"github.com/ajitpratap0/alpinist/internal/marketdata"
	"github.com/ajitpratap0/alpinist/internal/portfolio"
)

// ErrInsufficientData signals that no instrument in the allocation had
// enough price history to compute portfolio returns. Callers degrade to
// zero-valued metrics rather than failing the run.
var ErrInsufficientData = errors.New("insufficient price data for risk computation")

// tradingDays is the annualization factor for daily observations.
const tradingDays = 252

// zScores maps confidence levels to one-tailed normal quantiles for
// parametric VaR. Unknown levels fall back to the 95% quantile.
var zScores = map[float64]float64{
	0.90: 1.282,
	0.95: 1.645,
	0.99: 2.326,
}

const fallbackZ = 1.645

// Metrics is the full set of portfolio risk measures, rounded to 4 decimal
// places at the engine boundary.
type Metrics struct {
	VaR95                float64 `json:"var_95"`
	CVaR95               float64 `json:"cvar_95"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	DiversificationScore float64 `json:"diversification_score"`
}

// Config holds the tunable inputs of the engine.
type Config struct {
	RiskFreeRate float64 // annual, default 0.02
	Confidence   float64 // VaR/CVaR confidence level, default 0.95
	LookbackDays int     // calendar days of history, default 730
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		RiskFreeRate: 0.02,
		Confidence:   0.95,
		LookbackDays: 730,
	}
}

// Engine computes risk metrics over weighted portfolio returns.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine. The risk-free rate is taken as given, so a
// configured 0.0 stays 0.0; a non-positive confidence or lookback is
// replaced with the default since neither has a meaningful zero.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Confidence <= 0 {
		cfg.Confidence = def.Confidence
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = def.LookbackDays
	}
	return &Engine{cfg: cfg}
}

// VaR computes parametric value at risk: -(mean - z*std) with sample
// standard deviation. Fewer than two observations yield 0.
func VaR(returns []float64, confidence float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	z, ok := zScores[confidence]
	if !ok {
		z = fallbackZ
	}
	mean := stat.Mean(returns, nil)
	std := stat.StdDev(returns, nil)
	v := -(mean - z*std)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// CVaR computes expected shortfall: the mean loss over all returns at or
// below -VaR. An empty tail collapses to VaR.
func CVaR(returns []float64, confidence float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	v := VaR(returns, confidence)
	threshold := -v

	var sum float64
	count := 0
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		return v
	}
	cvar := -sum / float64(count)
	if math.IsNaN(cvar) {
		return v
	}
	return cvar
}

// MaxDrawdown computes the largest peak-to-trough decline of the cumulative
// product of (1+return). Always non-negative.
func MaxDrawdown(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	cum := 1.0
	runningMax := 1.0
	worst := 0.0
	for _, r := range returns {
		cum *= 1 + r
		if cum > runningMax {
			runningMax = cum
		}
		if runningMax > 0 {
			dd := (cum - runningMax) / runningMax
			if dd < worst {
				worst = dd
			}
		}
	}
	return -worst
}

// AnnualizedVolatility is the sample standard deviation of daily returns
// scaled by sqrt(252).
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	vol := stat.StdDev(returns, nil) * math.Sqrt(tradingDays)
	if math.IsNaN(vol) {
		return 0
	}
	return vol
}

// SharpeRatio is annualized excess return over annualized volatility,
// defined as 0 when volatility vanishes or data is insufficient.
func (e *Engine) SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	annualVol := AnnualizedVolatility(returns)
	if annualVol == 0 {
		return 0
	}
	annualReturn := stat.Mean(returns, nil) * tradingDays
	sharpe := (annualReturn - e.cfg.RiskFreeRate) / annualVol
	if math.IsNaN(sharpe) {
		return 0
	}
	return sharpe
}

// DiversificationScore is 1 minus pairwise return correlation weighted by
// the product of position weights, clamped to [0,1]. A single-instrument
// portfolio scores 1.0 by convention; an empty weight set scores 0.0.
func DiversificationScore(weights map[string]float64, returnsByTicker map[string][]float64) float64 {
	if len(weights) == 0 {
		return 0
	}
	if len(weights) == 1 {
		return 1
	}

	tickers := make([]string, 0, len(weights))
	for t := range weights {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	totalWeightedCorr := 0.0
	totalWeight := 0.0
	for i := 0; i < len(tickers); i++ {
		for j := i + 1; j < len(tickers); j++ {
			pairWeight := weights[tickers[i]] * weights[tickers[j]]
			if pairWeight <= 0 {
				continue
			}
			x, y := alignReturns(returnsByTicker[tickers[i]], returnsByTicker[tickers[j]])
			if len(x) < 2 {
				continue
			}
			corr := stat.Correlation(x, y, nil)
			if math.IsNaN(corr) {
				continue
			}
			totalWeightedCorr += corr * pairWeight
			totalWeight += pairWeight
		}
	}

	if totalWeight == 0 {
		return 1
	}
	score := 1 - totalWeightedCorr/totalWeight
	return math.Max(0, math.Min(1, score))
}

// alignReturns truncates both series to their common most-recent length.
func alignReturns(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}

// PortfolioReturns combines per-instrument return series into one weighted
// daily return series. Instruments without data are excluded and the
// surviving weights renormalized; if nothing survives, ErrInsufficientData
// is returned.
func PortfolioReturns(seriesByTicker map[string]marketdata.Series, weights map[string]float64) ([]float64, error) {
	type component struct {
		weight  float64
		returns []float64
	}

	var components []component
	present := 0.0
	minLen := math.MaxInt

	// Deterministic iteration order.
	tickers := make([]string, 0, len(weights))
	for t := range weights {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		w := weights[ticker]
		if w <= 0 {
			continue
		}
		series, ok := seriesByTicker[ticker]
		if !ok {
			continue
		}
		returns := series.Returns()
		if len(returns) == 0 {
			continue
		}
		components = append(components, component{weight: w, returns: returns})
		present += w
		if len(returns) < minLen {
			minLen = len(returns)
		}
	}

	if len(components) == 0 || present <= 0 {
		return nil, ErrInsufficientData
	}

	out := make([]float64, minLen)
	for _, c := range components {
		w := c.weight / present
		tail := c.returns[len(c.returns)-minLen:]
		for i, r := range tail {
			out[i] += w * r
		}
	}
	return out, nil
}

// Assessment bundles the metrics with the inputs that shaped them.
type Assessment struct {
	Metrics       Metrics        `json:"metrics"`
	StressResults []StressResult `json:"stress_results"`
	DataPoints    int            `json:"data_points"`
	ComputedAt    time.Time      `json:"computed_at"`
}

// Assess computes the full metrics set for an allocation from provider data.
// Missing instruments degrade gracefully; only infrastructure failures
// return an error. When no instrument has usable history the metrics are
// zero-valued with DataPoints == 0.
func (e *Engine) Assess(ctx context.Context, provider marketdata.Provider, alloc portfolio.Allocation, asOf time.Time) (Assessment, error) {
	from := asOf.AddDate(0, 0, -e.cfg.LookbackDays)
	weights := alloc.Weights()

	seriesByTicker, err := provider.DailyCloses(ctx, alloc.Tickers(), from, asOf)
	if err != nil {
		return Assessment{}, err
	}

	returnsByTicker := make(map[string][]float64, len(seriesByTicker))
	for ticker, series := range seriesByTicker {
		returnsByTicker[ticker] = series.Returns()
	}

	assessment := Assessment{ComputedAt: asOf}

	returns, err := PortfolioReturns(seriesByTicker, weights)
	if err != nil {
		if errors.Is(err, ErrInsufficientData) {
			log.Warn().
				Int("instruments", len(alloc.Positions)).
				Msg("No usable price history, reporting zero risk metrics")
			assessment.Metrics.DiversificationScore = round4(DiversificationScore(weights, returnsByTicker))
			return assessment, nil
		}
		return Assessment{}, err
	}

	assessment.DataPoints = len(returns)
	assessment.Metrics = Metrics{
		VaR95:                round4(VaR(returns, e.cfg.Confidence)),
		CVaR95:               round4(CVaR(returns, e.cfg.Confidence)),
		MaxDrawdown:          round4(MaxDrawdown(returns)),
		AnnualizedVolatility: round4(AnnualizedVolatility(returns)),
		SharpeRatio:          round4(e.SharpeRatio(returns)),
		DiversificationScore: round4(DiversificationScore(weights, returnsByTicker)),
	}

	log.Debug().
		Int("data_points", assessment.DataPoints).
		Float64("var_95", assessment.Metrics.VaR95).
		Float64("cvar_95", assessment.Metrics.CVaR95).
		Float64("volatility", assessment.Metrics.AnnualizedVolatility).
		Float64("diversification", assessment.Metrics.DiversificationScore).
		Msg("Risk metrics computed")

	return assessment, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
