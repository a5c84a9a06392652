// ABOUTME: Request rate limiter with per-minute and per-day windows
// ABOUTME: Blocks until the minute window resets; fails fast on daily quota
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQuotaExceeded is returned when the daily request ceiling is
// reached. Callers must not sleep it off; interactive paths report
// "try again later" and batch paths stop cleanly.
var ErrQuotaExceeded = errors.New("daily request quota exceeded")

// Clock abstracts wall time so the limiter is testable without
// real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Limiter enforces requests-per-minute and requests-per-day ceilings.
// When the minute window fills, Acquire sleeps until it resets; when
// the day window fills, Acquire returns ErrQuotaExceeded immediately.
type Limiter struct {
	mu sync.Mutex

	perMinute int
	perDay    int
	clock     Clock

	minuteStart time.Time
	minuteCount int
	dayStart    time.Time
	dayCount    int
}

// New creates a limiter with the given ceilings using the system clock.
func New(perMinute, perDay int) *Limiter {
	return NewWithClock(perMinute, perDay, realClock{})
}

// NewWithClock creates a limiter with an injectable clock for tests.
func NewWithClock(perMinute, perDay int, clock Clock) *Limiter {
	now := clock.Now()
	return &Limiter{
		perMinute:   perMinute,
		perDay:      perDay,
		clock:       clock,
		minuteStart: now,
		dayStart:    now,
	}
}

// Acquire blocks until a request slot is available within the minute
// window, or returns ErrQuotaExceeded when the daily ceiling is
// reached. Context cancellation interrupts the wait.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()

		if now.Sub(l.dayStart) >= 24*time.Hour {
			l.dayStart = now
			l.dayCount = 0
		}
		if l.dayCount >= l.perDay {
			l.mu.Unlock()
			return ErrQuotaExceeded
		}

		if now.Sub(l.minuteStart) >= time.Minute {
			l.minuteStart = now
			l.minuteCount = 0
		}
		if l.minuteCount < l.perMinute {
			l.minuteCount++
			l.dayCount++
			l.mu.Unlock()
			return nil
		}

		wait := time.Minute - now.Sub(l.minuteStart)
		l.mu.Unlock()

		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Remaining returns the unused request slots in the current minute
// and day windows.
func (l *Limiter) Remaining() (minute, day int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	minuteCount, dayCount := l.minuteCount, l.dayCount
	if now.Sub(l.minuteStart) >= time.Minute {
		minuteCount = 0
	}
	if now.Sub(l.dayStart) >= 24*time.Hour {
		dayCount = 0
	}
	return l.perMinute - minuteCount, l.perDay - dayCount
}
