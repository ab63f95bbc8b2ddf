package marketdata

import (
	"context"
	"math"
	"time"
)

// StaticProvider serves fixed series from memory. Used by tests and by the
// advisor's demo mode, where no live data source is wired.
type StaticProvider struct {
	series map[string]Series
}

// NewStaticProvider creates a provider over the given per-ticker series.
func NewStaticProvider(series map[string]Series) *StaticProvider {
	return &StaticProvider{series: series}
}

// DailyCloses returns the configured series windowed to [from, to]. Tickers
// without data, or whose window is empty, are omitted.
func (p *StaticProvider) DailyCloses(_ context.Context, tickers []string, from, to time.Time) (map[string]Series, error) {
	out := make(map[string]Series, len(tickers))
	for _, ticker := range tickers {
		full, ok := p.series[ticker]
		if !ok {
			continue
		}
		window := full.Window(from, to)
		if window.Len() == 0 {
			continue
		}
		out[ticker] = window
	}
	return out, nil
}

// SyntheticSeries builds a deterministic daily series of n business-day
// closes starting at start, useful for demo fixtures. The price path is a
// damped sine wave around base so that different phases produce imperfectly
// correlated instruments.
func SyntheticSeries(start time.Time, n int, base, amplitude, phase float64) Series {
	var s Series
	day := start
	for i := 0; i < n; i++ {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		price := base * (1 + amplitude*math.Sin(phase+float64(i)/9.0) + 0.0004*float64(i))
		s.Dates = append(s.Dates, day)
		s.Closes = append(s.Closes, price)
		day = day.AddDate(0, 0, 1)
	}
	return s
}
