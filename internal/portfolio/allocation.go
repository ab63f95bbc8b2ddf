package portfolio

import (
	"fmt"
	"time"
)

// Position is a single allocation entry: an instrument, its target weight,
// and the reasoning behind it.
type Position struct {
	Ticker    string  `json:"ticker"`
	Weight    float64 `json:"weight"`
	Reasoning string  `json:"reasoning"`
}

// Allocation is a full portfolio proposal. Weights are expected to be
// non-negative and to sum to 1.0 within tolerance after validation; the
// portfolio is always fully invested, cash positions do not exist.
type Allocation struct {
	Positions  []Position `json:"positions"`
	Generation int        `json:"generation"`
	Timestamp  time.Time  `json:"timestamp"`
}

// WeightTolerance is the maximum deviation from 1.0 an allocation's weight
// sum may carry before it is renormalized.
const WeightTolerance = 1e-3

// Tickers returns the instrument identifiers in position order.
func (a Allocation) Tickers() []string {
	out := make([]string, len(a.Positions))
	for i, p := range a.Positions {
		out[i] = p.Ticker
	}
	return out
}

// Weights returns the ticker-to-weight mapping.
func (a Allocation) Weights() map[string]float64 {
	out := make(map[string]float64, len(a.Positions))
	for _, p := range a.Positions {
		out[p.Ticker] = p.Weight
	}
	return out
}

// WeightSum returns the sum of all position weights.
func (a Allocation) WeightSum() float64 {
	sum := 0.0
	for _, p := range a.Positions {
		sum += p.Weight
	}
	return sum
}

// Check verifies the allocation invariants against the given universe:
// every ticker must belong to the universe, weights must be non-negative,
// and the weight sum must be 1.0 within tolerance.
func (a Allocation) Check(universe []string) error {
	known := make(map[string]struct{}, len(universe))
	for _, t := range universe {
		known[t] = struct{}{}
	}
	for _, p := range a.Positions {
		if _, ok := known[p.Ticker]; !ok {
			return fmt.Errorf("position %s outside universe", p.Ticker)
		}
		if p.Weight < 0 {
			return fmt.Errorf("position %s has negative weight %f", p.Ticker, p.Weight)
		}
	}
	if sum := a.WeightSum(); sum < 1-WeightTolerance || sum > 1+WeightTolerance {
		return fmt.Errorf("weights sum to %f, want 1.0 within %v", sum, WeightTolerance)
	}
	return nil
}
