package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/platewise/resolver/internal/domain"
)

func TestNew(t *testing.T) {
	t.Run("rejects non-positive capacity", func(t *testing.T) {
		_, err := New(0, time.Second)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		_, err := New(5, 0)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})
}

func TestAcquire_ImmediateWhileTokensRemain(t *testing.T) {
	b, err := New(3, time.Hour)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := b.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d error = %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("draining a full bucket took %s, want immediate", elapsed)
	}
}

func TestAcquire_CapacityPlusOneWaitsForRefill(t *testing.T) {
	const capacity = 4
	const interval = 80 * time.Millisecond

	b, err := New(capacity, interval)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	start := time.Now()

	var wg sync.WaitGroup
	durations := make([]time.Duration, capacity+1)
	for i := 0; i < capacity+1; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := b.Acquire(ctx); err != nil {
				t.Errorf("Acquire %d error = %v", i, err)
				return
			}
			durations[i] = time.Since(start)
		}(i)
	}
	wg.Wait()

	var slowest time.Duration
	fast := 0
	for _, d := range durations {
		if d > slowest {
			slowest = d
		}
		if d < interval/2 {
			fast++
		}
	}
	if fast != capacity {
		t.Errorf("%d acquisitions completed before the refill interval, want %d", fast, capacity)
	}
	if slowest < interval {
		t.Errorf("last acquisition completed after %s, want >= %s", slowest, interval)
	}
}

func TestAcquire_CancelledWaitReturnsCanceled(t *testing.T) {
	b, err := New(1, time.Hour)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("draining Acquire error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled Acquire never returned")
	}
}

func TestAcquire_DeadlineDistinctFromCancel(t *testing.T) {
	b, err := New(1, time.Hour)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("draining Acquire error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := b.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestReconfigure(t *testing.T) {
	b, err := New(10, time.Hour)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	b.Reconfigure(2, time.Hour)
	if b.tokens != 2 {
		t.Errorf("tokens after shrink = %d, want clamped to 2", b.tokens)
	}

	// Invalid values are ignored.
	b.Reconfigure(0, time.Hour)
	if b.capacity != 2 {
		t.Errorf("capacity = %d, want 2 after ignored reconfigure", b.capacity)
	}
}
