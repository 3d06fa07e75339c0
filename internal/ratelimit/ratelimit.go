package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tyhouch/openroles.dev/internal/model"
)

// ATSRateLimiter enforces a minimum delay between requests to the same ATS
// backend. Every employer on a given vendor shares that vendor's budget, so
// scraping ten Greenhouse boards still spaces the requests out.
type ATSRateLimiter struct {
	mu        sync.Mutex
	lastCall  map[model.ATS]time.Time
	minDelay  time.Duration
	overrides map[model.ATS]time.Duration
}

// NewATSRateLimiter creates a rate limiter that enforces minDelay between
// consecutive requests to the same ATS vendor. overrides may replace the
// default delay for specific vendors and may be nil.
func NewATSRateLimiter(minDelay time.Duration, overrides map[model.ATS]time.Duration) *ATSRateLimiter {
	return &ATSRateLimiter{
		lastCall:  make(map[model.ATS]time.Time),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

func (r *ATSRateLimiter) delayFor(ats model.ATS) time.Duration {
	if d, ok := r.overrides[ats]; ok {
		return d
	}
	return r.minDelay
}

// Wait blocks until enough time has passed since the last request to the given
// ATS. Returns an error if the context is cancelled while waiting.
func (r *ATSRateLimiter) Wait(ctx context.Context, ats model.ATS) error {
	r.mu.Lock()
	last, ok := r.lastCall[ats]
	now := time.Now()

	if !ok {
		// First request for this ATS, no wait needed.
		r.lastCall[ats] = now
		r.mu.Unlock()
		return nil
	}

	minDelay := r.delayFor(ats)
	elapsed := now.Sub(last)
	if elapsed >= minDelay {
		r.lastCall[ats] = now
		r.mu.Unlock()
		return nil
	}

	remaining := minDelay - elapsed
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", ats, ctx.Err())
	case <-time.After(remaining):
	}

	// Record the actual time after waiting.
	r.mu.Lock()
	r.lastCall[ats] = time.Now()
	r.mu.Unlock()

	return nil
}

// RateLimitedFetcher is a decorator that enforces ATS-level rate limiting
// before delegating to the wrapped snapshot fetcher.
type RateLimitedFetcher struct {
	inner   model.SnapshotFetcher
	limiter *ATSRateLimiter
	ats     model.ATS
}

// NewRateLimitedFetcher wraps a snapshot fetcher with ATS-level rate limiting.
// All fetchers targeting the same ATS should share the same limiter instance.
func NewRateLimitedFetcher(inner model.SnapshotFetcher, limiter *ATSRateLimiter, ats model.ATS) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		inner:   inner,
		limiter: limiter,
		ats:     ats,
	}
}

// FetchPostings waits for the rate limiter to allow a request, then delegates
// to the wrapped fetcher.
func (f *RateLimitedFetcher) FetchPostings(ctx context.Context) ([]model.RawPosting, error) {
	if err := f.limiter.Wait(ctx, f.ats); err != nil {
		return nil, err
	}
	return f.inner.FetchPostings(ctx)
}
