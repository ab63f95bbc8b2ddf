// Command stress replays the historical stress catalog against a portfolio
// and reports its risk metrics, without running the advisory workflow.
package main

import (
	"context"
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/alpinist/internal/config"
	"github.com/ajitpratap0/alpinist/internal/marketdata"
	"github.com/ajitpratap0/alpinist/internal/portfolio"
	"github.com/ajitpratap0/alpinist/internal/risk"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	positions := flag.String("positions", "", `portfolio as "TICKER:WEIGHT,..." (equal weight when weights omitted)`)
	demo := flag.Bool("demo", false, "run against synthetic price data, no database required")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	alloc, err := parsePositions(*positions)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --positions")
	}
	alloc = portfolio.NewValidator(alloc.Tickers()).Validate(alloc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	asOf := time.Now().UTC()
	var provider marketdata.Provider
	if *demo {
		provider = syntheticProvider(alloc.Tickers(), asOf)
	} else {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("Connecting to postgres failed")
		}
		defer pool.Close()
		provider = marketdata.NewRateLimitedProvider(
			marketdata.NewPostgresProviderWithPool(pool), cfg.MarketData.RequestsPerMinute)
	}
	provider = marketdata.NewMemoryCachedProvider(provider, 15*time.Minute)

	scenarios := risk.DefaultScenarios()
	if cfg.Risk.ScenarioFile != "" {
		if loaded, err := risk.LoadScenarios(cfg.Risk.ScenarioFile); err != nil {
			log.Warn().Err(err).Msg("Falling back to built-in stress scenarios")
		} else {
			scenarios = loaded
		}
	}

	engine := risk.NewEngine(risk.Config{
		RiskFreeRate: cfg.Risk.RiskFreeRate,
		Confidence:   cfg.Risk.Confidence,
		LookbackDays: cfg.Risk.LookbackDays,
	})

	assessment, err := engine.Assess(ctx, provider, alloc, asOf)
	if err != nil {
		log.Fatal().Err(err).Msg("Risk assessment failed")
	}
	results, err := risk.NewStressRunner(provider, scenarios).Run(ctx, alloc)
	if err != nil {
		log.Fatal().Err(err).Msg("Stress testing failed")
	}

	printReport(alloc, assessment, results)
}

func parsePositions(raw string) (portfolio.Allocation, error) {
	if strings.TrimSpace(raw) == "" {
		return portfolio.Allocation{}, fmt.Errorf("no positions given")
	}

	var alloc portfolio.Allocation
	entries := strings.Split(raw, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		ticker, weightStr, hasWeight := strings.Cut(entry, ":")
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			return portfolio.Allocation{}, fmt.Errorf("empty ticker in %q", entry)
		}

		weight := 1.0 / float64(len(entries))
		if hasWeight {
			w, err := strconv.ParseFloat(strings.TrimSpace(weightStr), 64)
			if err != nil {
				return portfolio.Allocation{}, fmt.Errorf("bad weight in %q: %w", entry, err)
			}
			weight = w
		}
		alloc.Positions = append(alloc.Positions, portfolio.Position{Ticker: ticker, Weight: weight})
	}
	if len(alloc.Positions) == 0 {
		return portfolio.Allocation{}, fmt.Errorf("no positions given")
	}
	return alloc, nil
}

func printReport(alloc portfolio.Allocation, a risk.Assessment, results []risk.StressResult) {
	fmt.Println("Portfolio")
	for _, p := range alloc.Positions {
		fmt.Printf("  %-6s %6.2f%%\n", p.Ticker, p.Weight*100)
	}

	fmt.Println("\nRisk metrics")
	fmt.Printf("  VaR (95%%, daily)        %8.4f\n", a.Metrics.VaR95)
	fmt.Printf("  CVaR (95%%, daily)       %8.4f\n", a.Metrics.CVaR95)
	fmt.Printf("  Max drawdown            %8.4f\n", a.Metrics.MaxDrawdown)
	fmt.Printf("  Annualized volatility   %8.4f\n", a.Metrics.AnnualizedVolatility)
	fmt.Printf("  Sharpe ratio            %8.4f\n", a.Metrics.SharpeRatio)
	fmt.Printf("  Diversification score   %8.4f\n", a.Metrics.DiversificationScore)
	fmt.Printf("  Observations            %8d\n", a.DataPoints)

	fmt.Println("\nStress scenarios")
	if len(results) == 0 {
		fmt.Println("  (no scenario had price data for this portfolio)")
		return
	}
	for _, r := range results {
		fmt.Printf("  %-28s %8.2f%%  (%d tickers)\n", r.Scenario, r.PortfolioImpact*100, r.TickersCovered)
	}
}

func syntheticProvider(universe []string, asOf time.Time) marketdata.Provider {
	start := asOf.AddDate(-7, 0, 0)
	series := make(map[string]marketdata.Series, len(universe))
	for _, ticker := range universe {
		h := fnv.New32a()
		h.Write([]byte(ticker))
		seed := float64(h.Sum32() % 1000)
		series[ticker] = marketdata.SyntheticSeries(start, 1800, 50+seed/4, 5+seed/100, seed/159)
	}
	return marketdata.NewStaticProvider(series)
}
