package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memEntry struct {
	series  Series
	expires time.Time
}

// MemoryCachedProvider wraps a Provider with an in-process TTL cache. It
// suits single-run binaries where a Redis deployment is overkill.
type MemoryCachedProvider struct {
	inner Provider
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]memEntry
}

// NewMemoryCachedProvider wraps inner with a TTL cache; a zero ttl defaults
// to 15 minutes.
func NewMemoryCachedProvider(inner Provider, ttl time.Duration) *MemoryCachedProvider {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &MemoryCachedProvider{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]memEntry),
	}
}

// DailyCloses serves unexpired cached series and fetches the rest from the
// inner provider in one call.
func (p *MemoryCachedProvider) DailyCloses(ctx context.Context, tickers []string, from, to time.Time) (map[string]Series, error) {
	now := time.Now()
	out := make(map[string]Series, len(tickers))
	var misses []string

	p.mu.RLock()
	for _, ticker := range tickers {
		if entry, ok := p.entries[memKey(ticker, from, to)]; ok && now.Before(entry.expires) {
			out[ticker] = entry.series
			continue
		}
		misses = append(misses, ticker)
	}
	p.mu.RUnlock()

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := p.inner.DailyCloses(ctx, misses, from, to)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	for ticker, series := range fetched {
		out[ticker] = series
		p.entries[memKey(ticker, from, to)] = memEntry{series: series, expires: now.Add(p.ttl)}
	}
	p.mu.Unlock()

	return out, nil
}

func memKey(ticker string, from, to time.Time) string {
	return fmt.Sprintf("%s:%s:%s", ticker, from.Format("2006-01-02"), to.Format("2006-01-02"))
}
