// ABOUTME: Unit tests for the rate limiter using a fake clock
// ABOUTME: Covers minute-window blocking, daily fail-fast, and window resets
package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock advances instantly on Sleep instead of waiting.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

func TestAcquireWithinLimits(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewWithClock(3, 10, clock)

	for i := 0; i < 3; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire %d error: %v", i, err)
		}
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("unexpected sleeps within limits: %v", clock.sleeps)
	}
}

func TestAcquireBlocksUntilMinuteResets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewWithClock(2, 10, clock)

	for i := 0; i < 2; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire error: %v", err)
		}
	}

	// The third acquire must sleep until the window resets, then succeed.
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after window error: %v", err)
	}
	if len(clock.sleeps) == 0 {
		t.Fatal("expected the limiter to sleep before granting a slot")
	}
	if clock.sleeps[0] > time.Minute || clock.sleeps[0] <= 0 {
		t.Errorf("sleep duration = %v, want within (0, 1m]", clock.sleeps[0])
	}
}

func TestAcquireDailyQuotaFailsFast(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewWithClock(100, 2, clock)

	for i := 0; i < 2; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire error: %v", err)
		}
	}

	err := l.Acquire(context.Background())
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("error = %v, want ErrQuotaExceeded", err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("daily quota must fail fast, not sleep: %v", clock.sleeps)
	}
}

func TestDailyWindowResets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewWithClock(100, 1, clock)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if err := l.Acquire(context.Background()); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}

	clock.now = clock.now.Add(25 * time.Hour)
	if err := l.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire after daily reset error: %v", err)
	}
}

func TestAcquireRespectsContext(t *testing.T) {
	clock := &cancellingClock{now: time.Unix(1_700_000_000, 0)}
	l := NewWithClock(1, 10, clock)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	err := l.Acquire(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// cancellingClock simulates the caller cancelling during the sleep.
type cancellingClock struct {
	now time.Time
}

func (c *cancellingClock) Now() time.Time { return c.now }

func (c *cancellingClock) Sleep(_ context.Context, _ time.Duration) error {
	return context.Canceled
}

func TestRemaining(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewWithClock(5, 100, clock)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	minute, day := l.Remaining()
	if minute != 4 || day != 99 {
		t.Errorf("Remaining() = (%d, %d), want (4, 99)", minute, day)
	}
}
