package venue

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by an adapter's requests.
type RateLimiter struct {
	mu          sync.Mutex
	tokens      int
	burst       int
	refillEvery time.Duration
	lastRefill  time.Time
}

// NewRateLimiter allows burst calls immediately, then one more per
// refillEvery.
func NewRateLimiter(burst int, refillEvery time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:      burst,
		burst:       burst,
		refillEvery: refillEvery,
		lastRefill:  time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.take() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.refillEvery):
		}
	}
}

func (r *RateLimiter) take() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	refilled := int(now.Sub(r.lastRefill) / r.refillEvery)
	if refilled > 0 {
		r.tokens += refilled
		if r.tokens > r.burst {
			r.tokens = r.burst
		}
		r.lastRefill = r.lastRefill.Add(time.Duration(refilled) * r.refillEvery)
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}
