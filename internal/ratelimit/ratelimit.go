package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/jobscout/internal/clock"
)

// SlidingWindow admits at most calls requests within any trailing period.
// One instance is shared by every upstream request in the process.
type SlidingWindow struct {
	mu     sync.Mutex
	calls  int
	period time.Duration
	clock  clock.Clock
	window []time.Time // admission times, oldest first

	admitted int64
	waited   time.Duration

	onAdmit func(time.Time) // test hook, called under mu
}

// Stats is a snapshot of limiter activity.
type Stats struct {
	Admitted int64
	Waited   time.Duration // total time callers spent blocked
	InWindow int
}

// NewSlidingWindow creates a limiter allowing calls admissions per period.
// A nil clock means the wall clock.
func NewSlidingWindow(calls int, period time.Duration, clk clock.Clock) *SlidingWindow {
	if calls < 1 {
		calls = 1
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &SlidingWindow{
		calls:  calls,
		period: period,
		clock:  clk,
		window: make([]time.Time, 0, calls),
	}
}

// Acquire blocks until one more request can be admitted without exceeding
// the window, then records the admission. It returns an error only if ctx is
// cancelled while waiting.
func (l *SlidingWindow) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()
		l.prune(now)

		if len(l.window) < l.calls {
			l.window = append(l.window, now)
			l.admitted++
			if l.onAdmit != nil {
				l.onAdmit(now)
			}
			l.mu.Unlock()
			return nil
		}

		// The oldest admission leaves once it is strictly older than period.
		wait := l.window[0].Add(l.period).Sub(now) + time.Nanosecond
		if wait < time.Nanosecond {
			wait = time.Nanosecond
		}
		l.waited += wait
		l.mu.Unlock()

		// Sleep outside the lock, then compete for the slot again.
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}
	}
}

// prune drops admissions older than the period; one exactly period old
// still counts. Caller holds mu.
func (l *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-l.period)
	i := 0
	for i < len(l.window) && l.window[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

// Stats returns a snapshot of limiter counters.
func (l *SlidingWindow) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.clock.Now())
	return Stats{
		Admitted: l.admitted,
		Waited:   l.waited,
		InWindow: len(l.window),
	}
}
