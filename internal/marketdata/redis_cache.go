package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisSeriesCache caches per-ticker close series in Redis. Cache failures
// are never fatal: a broken cache behaves like a cache miss.
type RedisSeriesCache struct {
	client *redis.Client
	ttl    time.Duration
}

// seriesCacheEntry is the JSON payload stored per ticker and window.
type seriesCacheEntry struct {
	Ticker   string    `json:"ticker"`
	Series   Series    `json:"series"`
	CachedAt time.Time `json:"cached_at"`
}

// NewRedisSeriesCache creates a Redis-backed series cache. A nil client
// returns nil, making the cache optional throughout.
func NewRedisSeriesCache(client *redis.Client, ttl time.Duration) *RedisSeriesCache {
	if client == nil {
		return nil
	}
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &RedisSeriesCache{client: client, ttl: ttl}
}

// Get retrieves a cached series for the ticker and window. Returns the series
// and true on a hit; any error is treated as a miss.
func (c *RedisSeriesCache) Get(ctx context.Context, ticker string, from, to time.Time) (Series, bool) {
	if c == nil || c.client == nil {
		return Series{}, false
	}

	key := c.buildKey(ticker, from, to)

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	cached, err := c.client.Get(cacheCtx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("Redis get error - treating as cache miss")
		}
		return Series{}, false
	}

	var entry seriesCacheEntry
	if err := json.Unmarshal([]byte(cached), &entry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached series")
		return Series{}, false
	}

	log.Debug().
		Str("ticker", ticker).
		Int("points", entry.Series.Len()).
		Time("cached_at", entry.CachedAt).
		Msg("Cache hit for series")

	return entry.Series, true
}

// Set stores a series with the configured TTL.
func (c *RedisSeriesCache) Set(ctx context.Context, ticker string, from, to time.Time, series Series) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not initialized")
	}

	key := c.buildKey(ticker, from, to)
	entry := seriesCacheEntry{Ticker: ticker, Series: series, CachedAt: time.Now()}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal series entry: %w", err)
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if err := c.client.Set(cacheCtx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache series")
		return err
	}
	return nil
}

// Health checks the Redis connection.
func (c *RedisSeriesCache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not initialized")
	}
	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Ping(cacheCtx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

func (c *RedisSeriesCache) buildKey(ticker string, from, to time.Time) string {
	return fmt.Sprintf("alpinist:series:%s:%s:%s",
		ticker, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// CachedProvider wraps a Provider with a RedisSeriesCache, consulting the
// cache per ticker before hitting the underlying provider.
type CachedProvider struct {
	inner Provider
	cache *RedisSeriesCache
}

// NewCachedProvider wraps inner with the given cache. A nil cache passes
// every call straight through.
func NewCachedProvider(inner Provider, cache *RedisSeriesCache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache}
}

// DailyCloses serves each ticker from cache when possible and fetches the
// remainder from the inner provider in a single call.
func (p *CachedProvider) DailyCloses(ctx context.Context, tickers []string, from, to time.Time) (map[string]Series, error) {
	out := make(map[string]Series, len(tickers))
	var misses []string

	for _, ticker := range tickers {
		if series, ok := p.cache.Get(ctx, ticker, from, to); ok {
			out[ticker] = series
			continue
		}
		misses = append(misses, ticker)
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := p.inner.DailyCloses(ctx, misses, from, to)
	if err != nil {
		return nil, err
	}
	for ticker, series := range fetched {
		out[ticker] = series
		if err := p.cache.Set(ctx, ticker, from, to, series); err != nil {
			log.Debug().Err(err).Str("ticker", ticker).Msg("Series cache write failed")
		}
	}
	return out, nil
}
