package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var universe = []string{"NESN.SW", "ROG.SW", "NOVN.SW"}

func TestValidateRenormalizesOversubscribedWeights(t *testing.T) {
	v := NewValidator([]string{"A", "B", "C"})

	got := v.Validate(Allocation{Positions: []Position{
		{Ticker: "A", Weight: 0.5},
		{Ticker: "B", Weight: 0.3},
		{Ticker: "C", Weight: 0.3},
	}})

	require.Len(t, got.Positions, 3)
	assert.InDelta(t, 1.0, got.WeightSum(), 1e-9)
	// Proportions preserved: 0.5/1.1, 0.3/1.1, 0.3/1.1
	assert.InDelta(t, 0.4545, got.Positions[0].Weight, 1e-4)
	assert.InDelta(t, 0.2727, got.Positions[1].Weight, 1e-4)
	assert.InDelta(t, 0.2727, got.Positions[2].Weight, 1e-4)
}

func TestValidateDropsUnknownTickers(t *testing.T) {
	v := NewValidator(universe)

	got := v.Validate(Allocation{Positions: []Position{
		{Ticker: "NESN.SW", Weight: 0.6},
		{Ticker: "AAPL", Weight: 0.4}, // not in universe
	}})

	require.Len(t, got.Positions, 1)
	assert.Equal(t, "NESN.SW", got.Positions[0].Ticker)
	assert.InDelta(t, 1.0, got.WeightSum(), 1e-9)
	assert.NoError(t, got.Check(universe))
}

func TestValidateFallsBackToEqualWeight(t *testing.T) {
	v := NewValidator(universe)

	got := v.Validate(Allocation{Positions: []Position{
		{Ticker: "AAPL", Weight: 0.5},
		{Ticker: "MSFT", Weight: 0.5},
	}})

	require.Len(t, got.Positions, len(universe))
	for i, p := range got.Positions {
		assert.Equal(t, universe[i], p.Ticker)
		assert.InDelta(t, 1.0/3.0, p.Weight, 1e-9)
		assert.Equal(t, FallbackReasoning, p.Reasoning)
	}
}

func TestValidateAllZeroWeightsFallsBack(t *testing.T) {
	v := NewValidator(universe)

	got := v.Validate(Allocation{Positions: []Position{
		{Ticker: "NESN.SW", Weight: 0},
		{Ticker: "ROG.SW", Weight: 0},
	}})

	require.Len(t, got.Positions, len(universe))
	assert.InDelta(t, 1.0, got.WeightSum(), 1e-9)
}

func TestValidateClampsNegativeWeights(t *testing.T) {
	v := NewValidator(universe)

	got := v.Validate(Allocation{Positions: []Position{
		{Ticker: "NESN.SW", Weight: 0.8},
		{Ticker: "ROG.SW", Weight: -0.2},
		{Ticker: "NOVN.SW", Weight: 0.2},
	}})

	require.Len(t, got.Positions, 3)
	assert.InDelta(t, 1.0, got.WeightSum(), 1e-9)
	assert.Equal(t, 0.0, got.Positions[1].Weight)
	assert.NoError(t, got.Check(universe))
}

func TestValidateIsIdempotent(t *testing.T) {
	v := NewValidator(universe)

	first := v.Validate(Allocation{Positions: []Position{
		{Ticker: "NESN.SW", Weight: 0.5},
		{Ticker: "ROG.SW", Weight: 0.3},
		{Ticker: "NOVN.SW", Weight: 0.3},
	}})
	second := v.Validate(first)

	require.Len(t, second.Positions, len(first.Positions))
	for i := range first.Positions {
		assert.Equal(t, first.Positions[i].Ticker, second.Positions[i].Ticker)
		assert.Equal(t, first.Positions[i].Weight, second.Positions[i].Weight)
	}
}

func TestValidateNeverReturnsOutOfUniverse(t *testing.T) {
	v := NewValidator(universe)

	proposals := []Allocation{
		{Positions: []Position{{Ticker: "ZZZ", Weight: 1.0}}},
		{Positions: []Position{{Ticker: "NESN.SW", Weight: 0.2}, {Ticker: "ZZZ", Weight: 0.8}}},
		{},
	}
	for _, proposal := range proposals {
		got := v.Validate(proposal)
		assert.NoError(t, got.Check(universe))
	}
}

func TestCheckRejectsBadSums(t *testing.T) {
	a := Allocation{Positions: []Position{
		{Ticker: "NESN.SW", Weight: 0.5},
		{Ticker: "ROG.SW", Weight: 0.3},
	}}
	err := a.Check(universe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights sum")
}

func TestWeightSumExact(t *testing.T) {
	a := Allocation{Positions: []Position{
		{Ticker: "A", Weight: 0.25},
		{Ticker: "B", Weight: 0.25},
		{Ticker: "C", Weight: 0.5},
	}}
	assert.True(t, math.Abs(a.WeightSum()-1.0) < 1e-12)
}
