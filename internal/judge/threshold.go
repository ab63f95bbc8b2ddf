package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// RiskBounds are the numeric limits enforced by ThresholdRiskJudge.
type RiskBounds struct {
	MaxVaR95           float64
	MaxDrawdown        float64
	MinDiversification float64
}

// DefaultRiskBounds returns the standard acceptance limits.
func DefaultRiskBounds() RiskBounds {
	return RiskBounds{
		MaxVaR95:           0.04,
		MaxDrawdown:        0.40,
		MinDiversification: 0.20,
	}
}

// ThresholdRiskJudge is a deterministic risk assessor that approves an
// allocation unless a hard numeric bound is breached. It serves as the
// default when no external collaborator is configured.
type ThresholdRiskJudge struct {
	bounds RiskBounds
}

// NewThresholdRiskJudge creates a judge over the given bounds. Bounds are
// taken verbatim, so a zero VaR or drawdown limit is maximally strict and
// a zero diversification floor disables that check; callers wanting the
// standard limits use DefaultRiskBounds.
func NewThresholdRiskJudge(bounds RiskBounds) *ThresholdRiskJudge {
	return &ThresholdRiskJudge{bounds: bounds}
}

// AssessRisk compares the metrics bundle against the bounds. Each breached
// bound becomes one concern naming the limit and the observed value.
func (j *ThresholdRiskJudge) AssessRisk(_ context.Context, req RiskRequest) (RiskVerdict, error) {
	var concerns []string
	m := req.Metrics

	if m.VaR95 > j.bounds.MaxVaR95 {
		concerns = append(concerns, fmt.Sprintf(
			"daily VaR(95%%) %.4f exceeds limit %.4f", m.VaR95, j.bounds.MaxVaR95))
	}
	if m.MaxDrawdown > j.bounds.MaxDrawdown {
		concerns = append(concerns, fmt.Sprintf(
			"max drawdown %.4f exceeds limit %.4f", m.MaxDrawdown, j.bounds.MaxDrawdown))
	}
	if m.DiversificationScore < j.bounds.MinDiversification {
		concerns = append(concerns, fmt.Sprintf(
			"diversification score %.4f below minimum %.4f", m.DiversificationScore, j.bounds.MinDiversification))
	}

	if len(concerns) == 0 {
		return RiskVerdict{Decision: DecisionApproved}, nil
	}

	log.Info().
		Int("concerns", len(concerns)).
		Int("generation", req.Allocation.Generation).
		Msg("Allocation breaches risk bounds")

	return RiskVerdict{
		Decision: DecisionNeedsRevision,
		Concerns: concerns,
		Feedback: "reduce concentration and downside exposure: " + strings.Join(concerns, "; "),
	}, nil
}
