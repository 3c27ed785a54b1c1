// Package fetch retrieves upstream pages through the shared rate limiter,
// retrying transient failures with backoff.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/amishk599/jobscout/internal/clock"
	"github.com/amishk599/jobscout/internal/markup"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/retry"
)

// Outcome classifies the result of a fetch.
type Outcome int

const (
	// TransientFailure means the page could not be fetched after every attempt.
	TransientFailure Outcome = iota
	// Found means the page was fetched and parsed.
	Found
	// NotFound means the upstream answered 404. It is never retried.
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "transient_failure"
	}
}

// Result is the outcome of Fetch. Doc is set only when Outcome is Found; Err
// explains a TransientFailure and is usually a *model.HTTPError or a
// transport error.
type Result struct {
	Outcome  Outcome
	Doc      markup.Document
	Status   int // last HTTP status seen, 0 if no response
	Attempts int
	Err      error
}

// Absent reports whether the page could not be obtained for any reason.
func (r Result) Absent() bool {
	return r.Outcome != Found
}

// RateLimited reports whether the failure was the upstream refusing with 429.
func (r Result) RateLimited() bool {
	var httpErr *model.HTTPError
	return errors.As(r.Err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests
}

// Limiter gates every outgoing request.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// DefaultUserAgents are rotated across requests when none are configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// maxBodyBytes bounds how much of a page is read.
const maxBodyBytes = 8 << 20

// Options configures a Fetcher.
type Options struct {
	Policy     retry.Policy
	Timeout    time.Duration // per attempt (default: 30s)
	UserAgents []string
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Fetcher performs rate limited, retrying GET requests for HTML pages.
type Fetcher struct {
	client  *http.Client
	limiter Limiter
	opts    Options
	next    atomic.Uint64 // user agent rotation
}

// New creates a Fetcher. All Fetchers talking to the same upstream must share
// the limiter.
func New(client *http.Client, limiter Limiter, opts Options) *Fetcher {
	if opts.Policy.Attempts < 1 {
		opts.Policy.Attempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = DefaultUserAgents
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{client: client, limiter: limiter, opts: opts}
}

// Fetch retrieves and parses the page at url. It never returns a Go error;
// every failure is folded into the Result.
func (f *Fetcher) Fetch(ctx context.Context, url string) Result {
	var res Result

	for attempt := 1; attempt <= f.opts.Policy.Attempts; attempt++ {
		res.Attempts = attempt

		if err := f.limiter.Acquire(ctx); err != nil {
			res.Outcome, res.Err = TransientFailure, err
			return res
		}

		doc, status, err := f.get(ctx, url)
		res.Status = status
		if err == nil {
			res.Outcome, res.Doc, res.Err = Found, doc, nil
			return res
		}
		if status == http.StatusNotFound {
			res.Outcome, res.Err = NotFound, err
			return res
		}

		res.Outcome, res.Err = TransientFailure, err
		if !retry.Retryable(err) || ctx.Err() != nil || attempt == f.opts.Policy.Attempts {
			break
		}

		var retryAfter time.Duration
		var httpErr *model.HTTPError
		if errors.As(err, &httpErr) {
			retryAfter = httpErr.RetryAfter
		}
		delay := f.opts.Policy.Backoff(attempt, retryAfter)

		f.opts.Logger.Warn("retrying after transient error",
			"url", url,
			"attempt", attempt,
			"max_attempts", f.opts.Policy.Attempts,
			"status", status,
			"delay", delay,
			"error", err,
		)

		if err := f.opts.Clock.Sleep(ctx, delay); err != nil {
			res.Err = fmt.Errorf("retry cancelled: %w", err)
			return res
		}
	}

	f.opts.Logger.Debug("fetch gave up", "url", url, "attempts", res.Attempts, "status", res.Status, "error", res.Err)
	return res
}

// errAttemptTimeout marks an attempt that ran out its own deadline while the
// caller's context was still live. Unlike a cancelled caller it is retried.
var errAttemptTimeout = errors.New("attempt timed out")

// get performs a single attempt under its own timeout.
func (f *Fetcher) get(ctx context.Context, url string) (markup.Document, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	doc, status, err := f.do(attemptCtx, url)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return nil, status, fmt.Errorf("fetch %s: %w after %v", url, errAttemptTimeout, f.opts.Timeout)
	}
	return doc, status, err
}

func (f *Fetcher) do(ctx context.Context, url string) (markup.Document, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, resp.StatusCode, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode),
		}
	}

	doc, err := markup.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("fetch %s: %w", url, err)
	}
	return doc, resp.StatusCode, nil
}

func (f *Fetcher) userAgent() string {
	n := f.next.Add(1) - 1
	return f.opts.UserAgents[n%uint64(len(f.opts.UserAgents))]
}
