package marketdata

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedProvider throttles calls to an upstream provider. Useful when
// the underlying source is a metered market-data API.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider wraps inner with a token-bucket limiter of
// requestsPerMinute.
func NewRateLimitedProvider(inner Provider, requestsPerMinute int) *RateLimitedProvider {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	limit := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// DailyCloses waits for limiter clearance, honoring context cancellation,
// then delegates.
func (p *RateLimitedProvider) DailyCloses(ctx context.Context, tickers []string, from, to time.Time) (map[string]Series, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	return p.inner.DailyCloses(ctx, tickers, from, to)
}
