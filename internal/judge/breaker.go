package judge

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/ajitpratap0/alpinist/internal/analyst"
	"github.com/ajitpratap0/alpinist/internal/portfolio"
)

// Breaker thresholds for collaborator calls.
const (
	breakerMinRequests  = 3
	breakerFailureRatio = 0.6
	breakerOpenTimeout  = 60 * time.Second
	breakerHalfOpenMax  = 2
)

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: breakerHalfOpenMax,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= breakerMinRequests && failureRatio >= breakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Collaborator circuit breaker state changed")
		},
	})
}

// BreakerAnalystJudge wraps an AnalystJudge in a circuit breaker so a
// misbehaving collaborator fails fast once it starts erroring.
type BreakerAnalystJudge struct {
	inner AnalystJudge
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerAnalystJudge(inner AnalystJudge) *BreakerAnalystJudge {
	return &BreakerAnalystJudge{inner: inner, cb: newBreaker("analyst")}
}

func (j *BreakerAnalystJudge) Analyze(ctx context.Context, req AnalystRequest) (analyst.Finding, error) {
	out, err := j.cb.Execute(func() (interface{}, error) {
		return j.inner.Analyze(ctx, req)
	})
	if err != nil {
		return analyst.Finding{}, err
	}
	return out.(analyst.Finding), nil
}

// BreakerReviewJudge wraps a ReviewJudge in a circuit breaker.
type BreakerReviewJudge struct {
	inner ReviewJudge
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerReviewJudge(inner ReviewJudge) *BreakerReviewJudge {
	return &BreakerReviewJudge{inner: inner, cb: newBreaker("reviewer")}
}

func (j *BreakerReviewJudge) Review(ctx context.Context, finding analyst.Finding) (ReviewVerdict, error) {
	out, err := j.cb.Execute(func() (interface{}, error) {
		return j.inner.Review(ctx, finding)
	})
	if err != nil {
		return ReviewVerdict{}, err
	}
	return out.(ReviewVerdict), nil
}

// BreakerAllocationJudge wraps an AllocationJudge in a circuit breaker.
type BreakerAllocationJudge struct {
	inner AllocationJudge
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerAllocationJudge(inner AllocationJudge) *BreakerAllocationJudge {
	return &BreakerAllocationJudge{inner: inner, cb: newBreaker("allocator")}
}

func (j *BreakerAllocationJudge) Allocate(ctx context.Context, req AllocationRequest) (portfolio.Allocation, error) {
	out, err := j.cb.Execute(func() (interface{}, error) {
		return j.inner.Allocate(ctx, req)
	})
	if err != nil {
		return portfolio.Allocation{}, err
	}
	return out.(portfolio.Allocation), nil
}

// BreakerRiskJudge wraps a RiskJudge in a circuit breaker.
type BreakerRiskJudge struct {
	inner RiskJudge
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerRiskJudge(inner RiskJudge) *BreakerRiskJudge {
	return &BreakerRiskJudge{inner: inner, cb: newBreaker("risk")}
}

func (j *BreakerRiskJudge) AssessRisk(ctx context.Context, req RiskRequest) (RiskVerdict, error) {
	out, err := j.cb.Execute(func() (interface{}, error) {
		return j.inner.AssessRisk(ctx, req)
	})
	if err != nil {
		return RiskVerdict{}, err
	}
	return out.(RiskVerdict), nil
}
