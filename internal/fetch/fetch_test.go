package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/clock"
	"github.com/amishk599/jobscout/internal/markup"
	"github.com/amishk599/jobscout/internal/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingLimiter admits everything and counts acquisitions.
type countingLimiter struct {
	calls atomic.Int32
}

func (l *countingLimiter) Acquire(ctx context.Context) error {
	l.calls.Add(1)
	return ctx.Err()
}

const cardPage = `<div data-entity-urn="urn:li:jobPosting:42"><div class="base-search-card__info">
<h3>Engineer</h3><a class="hidden-nested-link">Acme</a></div></div>`

func newTestFetcher(limiter Limiter, clk clock.Clock) *Fetcher {
	return New(http.DefaultClient, limiter, Options{
		Policy:  retry.Policy{Attempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second},
		Timeout: 5 * time.Second,
		Clock:   clk,
		Logger:  discardLogger(),
	})
}

func TestFetch_Found(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(cardPage))
	}))
	defer srv.Close()

	limiter := &countingLimiter{}
	res := newTestFetcher(limiter, clock.NewFake(time.Now())).Fetch(context.Background(), srv.URL)

	if res.Outcome != Found {
		t.Fatalf("expected found, got %v (%v)", res.Outcome, res.Err)
	}
	if cards := markup.ExtractCards(res.Doc); len(cards) != 1 || cards[0].ID != "42" {
		t.Fatalf("unexpected cards: %+v", cards)
	}
	if calls.Load() != 1 || limiter.calls.Load() != 1 {
		t.Errorf("expected 1 request and 1 acquire, got %d and %d", calls.Load(), limiter.calls.Load())
	}
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	clk := clock.NewFake(time.Now())
	res := newTestFetcher(&countingLimiter{}, clk).Fetch(context.Background(), srv.URL)

	if res.Outcome != NotFound {
		t.Fatalf("expected not found, got %v", res.Outcome)
	}
	if !res.Absent() {
		t.Error("expected not found to be absent")
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 request, got %d", calls.Load())
	}
	if _, naps := clk.Slept(); naps != 0 {
		t.Errorf("expected no backoff sleep, got %d", naps)
	}
}

func TestFetch_RateLimitedExhaustsBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	clk := clock.NewFake(time.Now())
	limiter := &countingLimiter{}
	res := newTestFetcher(limiter, clk).Fetch(context.Background(), srv.URL)

	if res.Outcome != TransientFailure {
		t.Fatalf("expected transient failure, got %v", res.Outcome)
	}
	if !res.RateLimited() {
		t.Errorf("expected rate limited failure, got %v", res.Err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", calls.Load())
	}
	// Every attempt re-enters the limiter queue.
	if limiter.calls.Load() != 3 {
		t.Errorf("expected 3 acquires, got %d", limiter.calls.Load())
	}
	// 1s then 2s between the three attempts.
	if slept, naps := clk.Slept(); slept != 3*time.Second || naps != 2 {
		t.Errorf("expected 3s over 2 sleeps, got %v over %d", slept, naps)
	}
}

func TestFetch_HonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(cardPage))
	}))
	defer srv.Close()

	clk := clock.NewFake(time.Now())
	res := newTestFetcher(&countingLimiter{}, clk).Fetch(context.Background(), srv.URL)

	if res.Outcome != Found || res.Attempts != 2 {
		t.Fatalf("expected found on attempt 2, got %v on %d", res.Outcome, res.Attempts)
	}
	if slept, _ := clk.Slept(); slept != 7*time.Second {
		t.Errorf("expected Retry-After of 7s, slept %v", slept)
	}
}

func TestFetch_ServerErrorThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(cardPage))
	}))
	defer srv.Close()

	res := newTestFetcher(&countingLimiter{}, clock.NewFake(time.Now())).Fetch(context.Background(), srv.URL)
	if res.Outcome != Found {
		t.Fatalf("expected found after retry, got %v (%v)", res.Outcome, res.Err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", calls.Load())
	}
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	limiter := &countingLimiter{}
	res := newTestFetcher(limiter, clock.NewFake(time.Now())).Fetch(context.Background(), url)

	if res.Outcome != TransientFailure {
		t.Fatalf("expected transient failure, got %v", res.Outcome)
	}
	if res.Status != 0 || res.Err == nil {
		t.Errorf("expected transport error without status, got %d / %v", res.Status, res.Err)
	}
	if res.RateLimited() {
		t.Error("transport error reported as rate limited")
	}
	if limiter.calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", limiter.calls.Load())
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestFetcher(&countingLimiter{}, clock.NewFake(time.Now())).Fetch(ctx, srv.URL)
	if res.Outcome != TransientFailure {
		t.Fatalf("expected transient failure, got %v", res.Outcome)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", res.Err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no requests, got %d", calls.Load())
	}
}

func TestFetch_AttemptTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := New(http.DefaultClient, &countingLimiter{}, Options{
		Policy:  retry.Policy{Attempts: 2, BaseDelay: time.Second},
		Timeout: 50 * time.Millisecond,
		Clock:   clock.NewFake(time.Now()),
		Logger:  discardLogger(),
	})
	res := f.Fetch(context.Background(), srv.URL)

	if res.Outcome != TransientFailure {
		t.Fatalf("expected transient failure, got %v", res.Outcome)
	}
	if !errors.Is(res.Err, errAttemptTimeout) {
		t.Errorf("expected attempt timeout, got %v", res.Err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected both attempts to reach the server, got %d", calls.Load())
	}
}

func TestFetch_RotatesUserAgent(t *testing.T) {
	var mu sync.Mutex
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.Header.Get("User-Agent"))
		mu.Unlock()
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := New(http.DefaultClient, &countingLimiter{}, Options{
		Policy:     retry.DefaultPolicy(),
		UserAgents: []string{"ua-one", "ua-two"},
		Clock:      clock.NewFake(time.Now()),
		Logger:     discardLogger(),
	})
	for i := 0; i < 3; i++ {
		f.Fetch(context.Background(), srv.URL)
	}

	want := []string{"ua-one", "ua-two", "ua-one"}
	for i, ua := range want {
		if agents[i] != ua {
			t.Errorf("request %d: got user agent %q, want %q", i, agents[i], ua)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	if Found.String() != "found" || NotFound.String() != "not_found" || TransientFailure.String() != "transient_failure" {
		t.Fatal("unexpected outcome names")
	}
}
