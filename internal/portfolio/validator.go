package portfolio

import (
	"math"

	"github.com/rs/zerolog/log"
)

// FallbackReasoning tags positions synthesized when no proposed entry
// survived universe filtering.
const FallbackReasoning = "fallback: equal weight across universe"

// Validator filters proposed allocations to a fixed instrument universe and
// renormalizes weights. The universe is set once at workflow start and never
// grows; whatever a collaborator proposes, the validated allocation can only
// reference instruments from it.
type Validator struct {
	universe []string
	known    map[string]struct{}
}

// NewValidator creates a validator for the given universe. The slice is
// copied; later mutation of the caller's slice has no effect.
func NewValidator(universe []string) *Validator {
	known := make(map[string]struct{}, len(universe))
	u := make([]string, len(universe))
	copy(u, universe)
	for _, t := range u {
		known[t] = struct{}{}
	}
	return &Validator{universe: u, known: known}
}

// Universe returns the fixed instrument universe in original order.
func (v *Validator) Universe() []string {
	out := make([]string, len(v.universe))
	copy(out, v.universe)
	return out
}

// Validate returns a valid allocation derived from the proposal:
//
//  1. entries referencing instruments outside the universe are dropped,
//  2. if nothing survives, an equal-weight allocation across the full
//     universe is substituted,
//  3. weights are renormalized to sum to exactly 1.0 whenever the sum
//     deviates from 1.0 by more than WeightTolerance.
//
// Negative weights are clamped to zero before normalization. The function is
// idempotent: validating an already-valid allocation returns it unchanged.
func (v *Validator) Validate(proposed Allocation) Allocation {
	out := Allocation{
		Generation: proposed.Generation,
		Timestamp:  proposed.Timestamp,
	}

	for _, p := range proposed.Positions {
		if _, ok := v.known[p.Ticker]; !ok {
			log.Warn().
				Str("ticker", p.Ticker).
				Float64("weight", p.Weight).
				Msg("Dropping allocation entry outside universe")
			continue
		}
		if p.Weight < 0 {
			log.Warn().
				Str("ticker", p.Ticker).
				Float64("weight", p.Weight).
				Msg("Clamping negative allocation weight to zero")
			p.Weight = 0
		}
		out.Positions = append(out.Positions, p)
	}

	if len(out.Positions) == 0 {
		log.Warn().
			Int("universe_size", len(v.universe)).
			Msg("No proposed entries survived filtering, falling back to equal weight")
		return v.equalWeight(proposed)
	}

	sum := out.WeightSum()
	if sum <= 0 {
		// All surviving weights were zero; nothing to scale.
		return v.equalWeight(proposed)
	}

	if math.Abs(sum-1.0) > WeightTolerance {
		log.Info().
			Float64("weight_sum", sum).
			Msg("Renormalizing allocation weights")
		for i := range out.Positions {
			out.Positions[i].Weight /= sum
		}
	}

	return out
}

func (v *Validator) equalWeight(proposed Allocation) Allocation {
	alloc := Allocation{Generation: proposed.Generation, Timestamp: proposed.Timestamp}
	if len(v.universe) == 0 {
		return alloc
	}
	w := 1.0 / float64(len(v.universe))
	for _, t := range v.universe {
		alloc.Positions = append(alloc.Positions, Position{
			Ticker:    t,
			Weight:    w,
			Reasoning: FallbackReasoning,
		})
	}
	return alloc
}
