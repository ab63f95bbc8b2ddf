package judge

import (
	"context"
	"math"

	"github.com/ajitpratap0/alpinist/internal/analyst"
	"github.com/ajitpratap0/alpinist/internal/portfolio"
	"github.com/ajitpratap0/alpinist/internal/risk"
)

// AnalystRequest carries everything an analyst needs to research one
// instrument. Feedback holds the full history of reviewer feedback from
// earlier generations, oldest first.
type AnalystRequest struct {
	Ticker     string   `json:"ticker"`
	Universe   []string `json:"universe"`
	Feedback   []string `json:"feedback,omitempty"`
	Generation int      `json:"generation"`
}

// AnalystJudge researches a single instrument and produces a Finding.
type AnalystJudge interface {
	Analyze(ctx context.Context, req AnalystRequest) (analyst.Finding, error)
}

// ReviewVerdict is a reviewer's judgment of one finding.
type ReviewVerdict struct {
	Decision   Decision `json:"decision"`
	Strengths  []string `json:"strengths,omitempty"`
	Issues     []string `json:"issues,omitempty"`
	Feedback   string   `json:"feedback,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Sanitize clamps reviewer confidence to [0,1].
func (v ReviewVerdict) Sanitize() ReviewVerdict {
	v.Confidence = math.Max(0, math.Min(1, v.Confidence))
	return v
}

// ReviewJudge evaluates a finding for quality and completeness.
type ReviewJudge interface {
	Review(ctx context.Context, finding analyst.Finding) (ReviewVerdict, error)
}

// AllocationRequest carries the approved research and any accumulated risk
// feedback into the allocator.
type AllocationRequest struct {
	Universe     []string          `json:"universe"`
	Findings     []analyst.Finding `json:"findings"`
	RiskFeedback []string          `json:"risk_feedback,omitempty"`
	Generation   int               `json:"generation"`
}

// AllocationJudge proposes portfolio weights from findings. Proposals are
// untrusted and always pass through the portfolio validator afterward.
type AllocationJudge interface {
	Allocate(ctx context.Context, req AllocationRequest) (portfolio.Allocation, error)
}

// RiskRequest is the numeric bundle presented to the risk assessor.
type RiskRequest struct {
	Allocation    portfolio.Allocation `json:"allocation"`
	Metrics       risk.Metrics         `json:"metrics"`
	StressResults []risk.StressResult  `json:"stress_results,omitempty"`
}

// RiskVerdict is the risk assessor's judgment of an allocation.
type RiskVerdict struct {
	Decision Decision `json:"decision"`
	Concerns []string `json:"concerns,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

// RiskJudge evaluates the risk profile of a proposed allocation.
type RiskJudge interface {
	AssessRisk(ctx context.Context, req RiskRequest) (RiskVerdict, error)
}
