package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// Policy describes how many times an upstream request is attempted and how
// long to wait between attempts.
type Policy struct {
	Attempts  int           // total attempts including the first (default: 3)
	BaseDelay time.Duration // delay after the first failure, doubled after each further one (default: 1s)
	MaxDelay  time.Duration // cap on any single delay, including Retry-After (default: 30s)
	Jitter    float64       // fraction of the delay randomized in both directions, 0 disables
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
	}
}

// Backoff computes the delay after the given failed attempt (1-based).
// A Retry-After hint from the upstream wins when it is longer than the
// computed delay; the result never exceeds MaxDelay.
func (p Policy) Backoff(attempt int, retryAfter time.Duration) time.Duration {
	// Exponential: BaseDelay * 2^(attempt-1)
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	if p.Jitter > 0 {
		jitter := float64(delay) * p.Jitter
		delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
	}

	if retryAfter > delay {
		delay = retryAfter
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Retryable returns true if the error represents a transient failure worth
// retrying. Only cancellation and a definitive "not found" are permanent;
// every other upstream status and all transport errors are retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation: never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode != http.StatusNotFound
	}

	// Non-HTTP errors (network, DNS, etc.) are retryable.
	return true
}

// ParseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
