package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/ajitpratap0/alpinist/internal/analyst"
	"github.com/ajitpratap0/alpinist/internal/marketdata"
	"github.com/ajitpratap0/alpinist/internal/portfolio"
)

// MomentumAnalystJudge is a deterministic analyst built on trailing price
// momentum. It lets the full pipeline run without an external collaborator.
type MomentumAnalystJudge struct {
	provider marketdata.Provider
	lookback int
	asOf     time.Time
}

// NewMomentumAnalystJudge creates an analyst over roughly six months of
// history ending at asOf.
func NewMomentumAnalystJudge(provider marketdata.Provider, asOf time.Time) *MomentumAnalystJudge {
	return &MomentumAnalystJudge{provider: provider, lookback: 182, asOf: asOf}
}

func (j *MomentumAnalystJudge) Analyze(ctx context.Context, req AnalystRequest) (analyst.Finding, error) {
	from := j.asOf.AddDate(0, 0, -j.lookback)
	series, err := j.provider.DailyCloses(ctx, []string{req.Ticker}, from, j.asOf)
	if err != nil {
		return analyst.Finding{}, err
	}

	s, ok := series[req.Ticker]
	if !ok || s.Len() < 2 {
		return analyst.Finding{
			Ticker:         req.Ticker,
			Recommendation: analyst.Neutral,
			Confidence:     0.3,
			Risks:          []string{"no recent price history available"},
		}, nil
	}

	momentum := s.SimpleReturn()
	rec := analyst.Neutral
	switch {
	case momentum > 0.15:
		rec = analyst.StrongBuy
	case momentum > 0.05:
		rec = analyst.Buy
	case momentum < -0.15:
		rec = analyst.StrongSell
	case momentum < -0.05:
		rec = analyst.Sell
	}

	confidence := 0.5 + momentum
	driver := fmt.Sprintf("trailing return of %.1f%% over %d sessions", momentum*100, s.Len())

	finding := analyst.Finding{
		Ticker:         req.Ticker,
		Recommendation: rec,
		Confidence:     confidence,
		KeyDrivers:     []string{driver},
		TechnicalView:  fmt.Sprintf("price momentum %.4f", momentum),
	}
	if len(req.Feedback) > 0 {
		finding.Risks = append(finding.Risks,
			fmt.Sprintf("revised after %d reviewer notes", len(req.Feedback)))
	}
	return finding.Sanitize(), nil
}

// ChecklistReviewJudge is a deterministic reviewer that checks findings for
// structural completeness.
type ChecklistReviewJudge struct{}

func (ChecklistReviewJudge) Review(_ context.Context, f analyst.Finding) (ReviewVerdict, error) {
	var issues []string
	if !f.Recommendation.Valid() {
		issues = append(issues, "recommendation missing or unrecognized")
	}
	if len(f.KeyDrivers) == 0 && len(f.Risks) == 0 {
		issues = append(issues, "no key drivers or risks stated")
	}
	if f.Confidence < 0.1 {
		issues = append(issues, "confidence too low to act on")
	}

	if len(issues) > 0 {
		return ReviewVerdict{
			Decision: DecisionNeedsRevision,
			Issues:   issues,
			Feedback: "address: " + issues[0],
		}, nil
	}
	return ReviewVerdict{
		Decision:   DecisionApproved,
		Strengths:  []string{"complete and internally consistent"},
		Confidence: 0.8,
	}, nil
}

// RankWeightedAllocator proposes weights proportional to recommendation
// rank and analyst confidence. Risk feedback pulls the proposal toward
// equal weight, one third of the way per revision round.
type RankWeightedAllocator struct{}

func (RankWeightedAllocator) Allocate(_ context.Context, req AllocationRequest) (portfolio.Allocation, error) {
	n := len(req.Universe)
	if n == 0 {
		return portfolio.Allocation{}, nil
	}

	scores := make(map[string]float64, n)
	total := 0.0
	for _, f := range req.Findings {
		score := float64(f.Recommendation.Rank()+1) * (0.5 + f.Confidence)
		scores[f.Ticker] = score
		total += score
	}

	equal := 1.0 / float64(n)
	blend := float64(req.Generation) / 3.0
	if blend > 1 {
		blend = 1
	}

	alloc := portfolio.Allocation{Generation: req.Generation}
	for _, ticker := range req.Universe {
		w := equal
		if total > 0 {
			w = scores[ticker] / total
		}
		w = (1-blend)*w + blend*equal

		reasoning := "conviction-weighted from analyst findings"
		if req.Generation > 0 {
			reasoning = fmt.Sprintf("rebalanced toward equal weight after %d risk revisions", req.Generation)
		}
		alloc.Positions = append(alloc.Positions, portfolio.Position{
			Ticker:    ticker,
			Weight:    w,
			Reasoning: reasoning,
		})
	}
	return alloc, nil
}
