package judge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/alpinist/internal/analyst"
	"github.com/ajitpratap0/alpinist/internal/marketdata"
)

func demoDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func trendSeries(start, end float64) marketdata.Series {
	return marketdata.Series{
		Dates:  []time.Time{demoDay("2024-01-02"), demoDay("2024-03-01"), demoDay("2024-06-03")},
		Closes: []float64{start, (start + end) / 2, end},
	}
}

func TestMomentumAnalystJudge(t *testing.T) {
	asOf := demoDay("2024-06-28")
	ctx := context.Background()

	t.Run("strong uptrend is a strong buy", func(t *testing.T) {
		provider := marketdata.NewStaticProvider(map[string]marketdata.Series{
			"NVDA": trendSeries(100, 140),
		})
		j := NewMomentumAnalystJudge(provider, asOf)
		f, err := j.Analyze(ctx, AnalystRequest{Ticker: "NVDA"})
		require.NoError(t, err)
		assert.Equal(t, analyst.StrongBuy, f.Recommendation)
		assert.NotEmpty(t, f.KeyDrivers)
		assert.GreaterOrEqual(t, f.Confidence, 0.5)
	})

	t.Run("downtrend is a sell", func(t *testing.T) {
		provider := marketdata.NewStaticProvider(map[string]marketdata.Series{
			"XYZ": trendSeries(100, 90),
		})
		j := NewMomentumAnalystJudge(provider, asOf)
		f, err := j.Analyze(ctx, AnalystRequest{Ticker: "XYZ"})
		require.NoError(t, err)
		assert.Equal(t, analyst.Sell, f.Recommendation)
	})

	t.Run("no history degrades to neutral", func(t *testing.T) {
		j := NewMomentumAnalystJudge(marketdata.NewStaticProvider(nil), asOf)
		f, err := j.Analyze(ctx, AnalystRequest{Ticker: "GHOST"})
		require.NoError(t, err)
		assert.Equal(t, analyst.Neutral, f.Recommendation)
		assert.InDelta(t, 0.3, f.Confidence, 1e-9)
		assert.NotEmpty(t, f.Risks)
	})

	t.Run("revision notes reviewer feedback", func(t *testing.T) {
		provider := marketdata.NewStaticProvider(map[string]marketdata.Series{
			"NVDA": trendSeries(100, 140),
		})
		j := NewMomentumAnalystJudge(provider, asOf)
		f, err := j.Analyze(ctx, AnalystRequest{
			Ticker:     "NVDA",
			Feedback:   []string{"NVDA: expand on valuation"},
			Generation: 1,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, f.Risks)
	})
}

func TestChecklistReviewJudge(t *testing.T) {
	j := ChecklistReviewJudge{}
	ctx := context.Background()

	t.Run("complete finding approved", func(t *testing.T) {
		v, err := j.Review(ctx, analyst.Finding{
			Ticker:         "AAPL",
			Recommendation: analyst.Buy,
			Confidence:     0.7,
			KeyDrivers:     []string{"services growth"},
		})
		require.NoError(t, err)
		assert.Equal(t, DecisionApproved, v.Decision)
	})

	t.Run("empty finding flagged", func(t *testing.T) {
		v, err := j.Review(ctx, analyst.Finding{Ticker: "AAPL", Recommendation: analyst.Buy})
		require.NoError(t, err)
		assert.Equal(t, DecisionNeedsRevision, v.Decision)
		assert.NotEmpty(t, v.Issues)
		assert.NotEmpty(t, v.Feedback)
	})

	t.Run("bad recommendation flagged", func(t *testing.T) {
		v, err := j.Review(ctx, analyst.Finding{
			Ticker:         "AAPL",
			Recommendation: "WHATEVER",
			Confidence:     0.7,
			KeyDrivers:     []string{"x"},
		})
		require.NoError(t, err)
		assert.Equal(t, DecisionNeedsRevision, v.Decision)
	})
}

func TestRankWeightedAllocator(t *testing.T) {
	al := RankWeightedAllocator{}
	ctx := context.Background()

	findings := []analyst.Finding{
		{Ticker: "AAPL", Recommendation: analyst.StrongBuy, Confidence: 0.9},
		{Ticker: "MSFT", Recommendation: analyst.Neutral, Confidence: 0.5},
		{Ticker: "JNJ", Recommendation: analyst.Sell, Confidence: 0.6},
	}
	req := AllocationRequest{Universe: []string{"AAPL", "MSFT", "JNJ"}, Findings: findings}

	alloc, err := al.Allocate(ctx, req)
	require.NoError(t, err)
	require.Len(t, alloc.Positions, 3)
	assert.InDelta(t, 1.0, alloc.WeightSum(), 1e-9)

	weights := alloc.Weights()
	assert.Greater(t, weights["AAPL"], weights["MSFT"])
	assert.Greater(t, weights["MSFT"], weights["JNJ"])

	t.Run("risk revisions pull toward equal weight", func(t *testing.T) {
		revised := req
		revised.Generation = 2
		revised.RiskFeedback = []string{"too concentrated"}

		alloc2, err := al.Allocate(ctx, revised)
		require.NoError(t, err)
		w2 := alloc2.Weights()
		assert.Less(t, w2["AAPL"], weights["AAPL"])
		assert.Greater(t, w2["JNJ"], weights["JNJ"])
		assert.InDelta(t, 1.0, alloc2.WeightSum(), 1e-9)
	})

	t.Run("empty universe", func(t *testing.T) {
		alloc, err := al.Allocate(ctx, AllocationRequest{})
		require.NoError(t, err)
		assert.Empty(t, alloc.Positions)
	})
}
