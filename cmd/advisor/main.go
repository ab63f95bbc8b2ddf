// Command advisor runs the full advisory pipeline over an instrument
// universe and prints the recommendation bundle as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/alpinist/internal/config"
	"github.com/ajitpratap0/alpinist/internal/judge"
	"github.com/ajitpratap0/alpinist/internal/marketdata"
	"github.com/ajitpratap0/alpinist/internal/metrics"
	"github.com/ajitpratap0/alpinist/internal/risk"
	"github.com/ajitpratap0/alpinist/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	tickers := flag.String("tickers", "AAPL,MSFT,GOOGL,JNJ,JPM", "comma-separated instrument universe")
	demo := flag.Bool("demo", false, "run against synthetic price data, no database required")
	asOfFlag := flag.String("as-of", "", "valuation date (YYYY-MM-DD), defaults to today")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	universe := splitTickers(*tickers)
	if len(universe) == 0 {
		log.Fatal().Msg("No tickers given")
	}

	asOf := time.Now().UTC()
	if *asOfFlag != "" {
		asOf, err = time.Parse("2006-01-02", *asOfFlag)
		if err != nil {
			log.Fatal().Err(err).Str("as_of", *asOfFlag).Msg("Invalid --as-of date")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.Enabled {
		srv := metrics.NewServer(cfg.Monitoring.MetricsPort, config.NewLogger("metrics"))
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Metrics server failed to start")
		}
		defer srv.Stop(context.Background())
	}

	provider, cleanup, err := buildProvider(ctx, cfg, universe, asOf, *demo)
	if err != nil {
		log.Fatal().Err(err).Msg("Market data provider setup failed")
	}
	defer cleanup()

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

	deps := workflow.Deps{
		Analyst:   judge.NewBreakerAnalystJudge(judge.NewMomentumAnalystJudge(provider, asOf)),
		Reviewer:  judge.NewBreakerReviewJudge(judge.ChecklistReviewJudge{}),
		Allocator: judge.NewBreakerAllocationJudge(judge.RankWeightedAllocator{}),
		Risk: judge.NewThresholdRiskJudge(judge.RiskBounds{
			MaxVaR95:           cfg.Risk.MaxVaR95,
			MaxDrawdown:        cfg.Risk.MaxDrawdown,
			MinDiversification: cfg.Risk.MinDiversification,
		}),
		Engine:   engine,
		Stress:   risk.NewStressRunner(provider, scenarios),
		Provider: provider,
		Logger:   config.NewLogger("advisor"),
	}

	scheduler := workflow.NewScheduler(deps, workflow.Config{
		MaxReviewRevisions: cfg.Workflow.MaxReviewRevisions,
		MaxRiskRevisions:   cfg.Workflow.MaxRiskRevisions,
		AsOf:               asOf,
	})

	result, err := scheduler.Run(ctx, universe)
	if err != nil {
		log.Error().Err(err).Msg("Advisory run failed")
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal().Err(err).Msg("Encoding result failed")
	}
}

func splitTickers(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// buildProvider wires the market data stack: synthetic fixtures in demo
// mode, otherwise postgres behind an optional redis cache and a rate limit.
func buildProvider(ctx context.Context, cfg *config.Config, universe []string, asOf time.Time, demo bool) (marketdata.Provider, func(), error) {
	if demo {
		return syntheticProvider(universe, asOf), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	cleanup := func() { pool.Close() }

	var provider marketdata.Provider = marketdata.NewPostgresProviderWithPool(pool)
	provider = marketdata.NewRateLimitedProvider(provider, cfg.MarketData.RequestsPerMinute)

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache := marketdata.NewRedisSeriesCache(client, time.Duration(cfg.Redis.TTLMinutes)*time.Minute)
		if err := cache.Health(ctx); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, running without series cache")
		} else {
			provider = marketdata.NewCachedProvider(provider, cache)
		}
		prev := cleanup
		cleanup = func() {
			client.Close()
			prev()
		}
	}

	return provider, cleanup, nil
}

// syntheticProvider builds deterministic sine-wave fixtures per ticker so
// demo runs are reproducible.
func syntheticProvider(universe []string, asOf time.Time) marketdata.Provider {
	start := asOf.AddDate(-3, 0, 0)
	series := make(map[string]marketdata.Series, len(universe))
	for _, ticker := range universe {
		h := fnv.New32a()
		h.Write([]byte(ticker))
		seed := float64(h.Sum32() % 1000)
		series[ticker] = marketdata.SyntheticSeries(start, 780, 50+seed/4, 5+seed/100, seed/159)
	}
	return marketdata.NewStaticProvider(series)
}
