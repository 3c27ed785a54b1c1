package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when the upstream has no listing for a request.
	ErrNotFound = errors.New("listing not found")
	// ErrInvalidJobURL is returned for URLs that do not name a job listing.
	ErrInvalidJobURL = errors.New("invalid job listing URL")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// UnavailableError reports that the upstream could not be reached after all
// retries. Callers should surface it as a service-unavailable condition and
// suggest retrying after RetryAfter.
type UnavailableError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream unavailable, retry after %v: %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("upstream unavailable, retry after %v", e.RetryAfter)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
