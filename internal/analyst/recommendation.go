package analyst

import (
	"fmt"
	"strings"
)

// Recommendation is the closed five-value rating scale an analyst can assign.
type Recommendation string

const (
	StrongSell Recommendation = "STRONG_SELL"
	Sell       Recommendation = "SELL"
	Neutral    Recommendation = "NEUTRAL"
	Buy        Recommendation = "BUY"
	StrongBuy  Recommendation = "STRONG_BUY"
)

// recommendationRank orders the scale from most bearish to most bullish.
var recommendationRank = map[Recommendation]int{
	StrongSell: 0,
	Sell:       1,
	Neutral:    2,
	Buy:        3,
	StrongBuy:  4,
}

// recommendationSynonyms maps free-form rating strings collaborators emit to
// the canonical scale. Keys are upper-cased with separators collapsed.
var recommendationSynonyms = map[string]Recommendation{
	"STRONG_SELL":    StrongSell,
	"SELL":           Sell,
	"UNDERWEIGHT":    Sell,
	"REDUCE":         Sell,
	"NEUTRAL":        Neutral,
	"HOLD":           Neutral,
	"MARKET_PERFORM": Neutral,
	"BUY":            Buy,
	"ACCUMULATE":     Buy,
	"OVERWEIGHT":     Buy,
	"STRONG_BUY":     StrongBuy,
}

// ParseRecommendation normalizes a collaborator-supplied rating string into
// the canonical scale. Unknown values fall back to NEUTRAL and return an
// error so the caller can quarantine the raw string instead of passing it
// through.
func ParseRecommendation(raw string) (Recommendation, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")

	if rec, ok := recommendationSynonyms[key]; ok {
		return rec, nil
	}
	return Neutral, fmt.Errorf("unknown recommendation %q", raw)
}

// Valid reports whether r is one of the five canonical values.
func (r Recommendation) Valid() bool {
	_, ok := recommendationRank[r]
	return ok
}

// Rank returns the position of r on the bearish-to-bullish scale, 0 through 4.
// Unknown values rank as Neutral.
func (r Recommendation) Rank() int {
	if rank, ok := recommendationRank[r]; ok {
		return rank
	}
	return recommendationRank[Neutral]
}

func (r Recommendation) String() string {
	return string(r)
}
