// Package marketdata supplies aligned daily close series for instruments.
//
// Providers treat a missing instrument as a normal outcome: the returned map
// simply has no entry for it. Callers are expected to degrade gracefully by
// excluding the instrument and renormalizing weights.
package marketdata

import (
	"context"
	"time"
)

// Provider supplies per-instrument daily close series.
type Provider interface {
	// DailyCloses returns the close series for each requested ticker within
	// [from, to]. Tickers with no data are absent from the result; only
	// infrastructure failures produce an error.
	DailyCloses(ctx context.Context, tickers []string, from, to time.Time) (map[string]Series, error)
}

// Series is an ordered run of daily closing prices.
type Series struct {
	Dates  []time.Time `json:"dates"`
	Closes []float64   `json:"closes"`
}

// Len returns the number of observations.
func (s Series) Len() int {
	return len(s.Closes)
}

// Returns computes simple daily returns from consecutive closes. Days whose
// previous close is zero are skipped.
func (s Series) Returns() []float64 {
	if len(s.Closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(s.Closes)-1)
	for i := 1; i < len(s.Closes); i++ {
		if s.Closes[i-1] > 0 {
			out = append(out, (s.Closes[i]-s.Closes[i-1])/s.Closes[i-1])
		}
	}
	return out
}

// SimpleReturn is the total return from first to last close, or 0 when the
// series is too short or starts at zero.
func (s Series) SimpleReturn() float64 {
	if len(s.Closes) < 2 || s.Closes[0] <= 0 {
		return 0
	}
	first, last := s.Closes[0], s.Closes[len(s.Closes)-1]
	return (last - first) / first
}

// Window returns the sub-series with dates inside [from, to], inclusive.
func (s Series) Window(from, to time.Time) Series {
	var out Series
	for i, d := range s.Dates {
		if d.Before(from) || d.After(to) {
			continue
		}
		out.Dates = append(out.Dates, d)
		out.Closes = append(out.Closes, s.Closes[i])
	}
	return out
}
