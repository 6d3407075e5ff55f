package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/platewise/resolver/internal/domain"
)

// Bucket is a token bucket that refills in discrete batches: every interval
// the token count jumps back to capacity, it does not drip continuously.
// One instance is shared across all concurrent resolutions so the total
// outbound call rate is throttled, not the per-user rate.
type Bucket struct {
	mu         sync.Mutex
	capacity   int
	interval   time.Duration
	tokens     int
	lastRefill time.Time
	now        func() time.Time
}

// New creates a bucket starting full. capacity and interval must be
// positive; anything else is a contract violation.
func New(capacity int, interval time.Duration) (*Bucket, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: limiter capacity must be positive, got %d", domain.ErrInvalidConfig, capacity)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("%w: limiter interval must be positive, got %s", domain.ErrInvalidConfig, interval)
	}
	return &Bucket{
		capacity:   capacity,
		interval:   interval,
		tokens:     capacity,
		lastRefill: time.Now(),
		now:        time.Now,
	}, nil
}

// Acquire blocks until a token is available, consuming one. Cancellation
// surfaces as ctx.Err(), so a cancelled wait (context.Canceled) stays
// distinguishable from an expired deadline (context.DeadlineExceeded).
func (b *Bucket) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.mu.Lock()
		b.refill()
		if b.tokens > 0 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := b.lastRefill.Add(b.interval).Sub(b.now())
		b.mu.Unlock()

		if wait <= 0 {
			// Refill is due; loop around and take it.
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reconfigure swaps capacity and refill interval at runtime. Invalid values
// are ignored so a bad hot-reload cannot wedge the limiter.
func (b *Bucket) Reconfigure(capacity int, interval time.Duration) {
	if capacity <= 0 || interval <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.capacity = capacity
	b.interval = interval
	if b.tokens > capacity {
		b.tokens = capacity
	}
}

// refill tops the bucket back up to capacity once per elapsed interval.
// Caller must hold mu.
func (b *Bucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed < b.interval {
		return
	}
	b.tokens = b.capacity
	// Advance by whole intervals so the refill cadence stays fixed.
	b.lastRefill = b.lastRefill.Add(elapsed - elapsed%b.interval)
}
