// Package search turns logical job searches into a bounded, cached stream of
// upstream page fetches and enriches the results with descriptions.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/amishk599/jobscout/internal/cache"
	"github.com/amishk599/jobscout/internal/clock"
	"github.com/amishk599/jobscout/internal/fetch"
	"github.com/amishk599/jobscout/internal/markup"
	"github.com/amishk599/jobscout/internal/model"
)

const (
	DefaultSearchBase  = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	DefaultListingBase = "https://www.linkedin.com/jobs/view"

	// HardMaxResults bounds MaxResults regardless of what the caller asks for.
	HardMaxResults = 100
)

// PageFetcher retrieves one upstream page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) fetch.Result
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	SearchBase            string
	ListingBase           string
	PageSize              int           // cards per upstream page (default: 10)
	MaxResults            int           // used when a query leaves it unset (default: 10)
	Concurrency           int           // parallel description fetches (default: 5)
	PageDelay             time.Duration // pause between upstream pages (default: 2s)
	UnavailableRetryAfter time.Duration // suggested to callers on upstream outage (default: 60s)

	BaseTTL           time.Duration // cache base TTL (default: 5m)
	SearchMaxAge      time.Duration // ceiling for cached searches (default: 1h)
	DescriptionMaxAge time.Duration // ceiling for cached descriptions (default: 2h)
	SweepInterval     time.Duration // default: 5m

	Clock  clock.Clock
	Logger *slog.Logger
}

func (o *Options) setDefaults() {
	if o.SearchBase == "" {
		o.SearchBase = DefaultSearchBase
	}
	if o.ListingBase == "" {
		o.ListingBase = DefaultListingBase
	}
	if o.PageSize <= 0 {
		o.PageSize = 10
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 10
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	if o.PageDelay < 0 {
		o.PageDelay = 0
	}
	if o.UnavailableRetryAfter <= 0 {
		o.UnavailableRetryAfter = 60 * time.Second
	}
	if o.SearchMaxAge <= 0 {
		o.SearchMaxAge = time.Hour
	}
	if o.DescriptionMaxAge <= 0 {
		o.DescriptionMaxAge = 2 * time.Hour
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Service owns the search and description caches and drives the fetcher.
type Service struct {
	fetcher      PageFetcher
	opts         Options
	listingHost  string
	searches     *cache.Store[model.SearchResult]
	descriptions *cache.Store[string]
	flight       singleflight.Group
}

// Stats reports cache activity.
type Stats struct {
	Searches     cache.Stats
	Descriptions cache.Stats
}

// NewService creates a Service. Call Start to run the cache sweepers and
// Close to stop them.
func NewService(fetcher PageFetcher, opts Options) *Service {
	opts.setDefaults()

	host := opts.ListingBase
	if u, err := url.Parse(opts.ListingBase); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	return &Service{
		fetcher:     fetcher,
		opts:        opts,
		listingHost: strings.TrimPrefix(strings.ToLower(host), "www."),
		searches: cache.New(cache.Options{
			Name:          "searches",
			BaseTTL:       opts.BaseTTL,
			MaxAge:        opts.SearchMaxAge,
			SweepInterval: opts.SweepInterval,
			Clock:         opts.Clock,
			Logger:        opts.Logger,
		}, model.SearchResult.Clone),
		descriptions: cache.New[string](cache.Options{
			Name:          "descriptions",
			BaseTTL:       opts.BaseTTL,
			MaxAge:        opts.DescriptionMaxAge,
			SweepInterval: opts.SweepInterval,
			Clock:         opts.Clock,
			Logger:        opts.Logger,
		}, nil),
	}
}

// Start launches the background cache sweepers.
func (s *Service) Start(ctx context.Context) {
	s.searches.Start(ctx)
	s.descriptions.Start(ctx)
}

// Close stops the background cache sweepers.
func (s *Service) Close() {
	s.searches.Stop()
	s.descriptions.Stop()
}

// Stats returns cache counters.
func (s *Service) Stats() Stats {
	return Stats{Searches: s.searches.Stats(), Descriptions: s.descriptions.Stats()}
}

// Search returns the listings matching q. Identical concurrent searches
// share one upstream run. An upstream outage on the first page is reported
// as *model.UnavailableError; a missing or rate limited first page yields an
// empty result.
func (s *Service) Search(ctx context.Context, q model.Query) (model.SearchResult, error) {
	q = q.Normalize()
	if q.MaxResults <= 0 {
		q.MaxResults = s.opts.MaxResults
	}
	if q.MaxResults > HardMaxResults {
		q.MaxResults = HardMaxResults
	}

	key := Fingerprint(q)
	if cached, ok := s.searches.Get(key); ok {
		s.opts.Logger.Debug("search cache hit", "fingerprint", key, "items", len(cached.Items))
		return cached, nil
	}

	v, shared, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		// A run that finished between the lookup above and joining the
		// flight has already stored its result.
		if cached, ok := s.searches.Get(key); ok {
			return cached, nil
		}
		return s.search(ctx, q, key)
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.SearchResult{}, fmt.Errorf("search %q: %w", q.Keywords, err)
		}
		return model.SearchResult{}, err
	}
	if shared {
		s.opts.Logger.Debug("search joined in-flight run", "fingerprint", key)
	}
	return v.(model.SearchResult).Clone(), nil
}

func (s *Service) search(ctx context.Context, q model.Query, key string) (model.SearchResult, error) {
	start := q.Page * q.MaxResults
	seen := make(map[string]bool)
	jobs := []model.Job{}
	usable, lastPage := 0, 0

	for page := 0; ; page++ {
		if page > 0 {
			if err := s.opts.Clock.Sleep(ctx, s.opts.PageDelay); err != nil {
				return model.SearchResult{}, fmt.Errorf("search %q: %w", q.Keywords, err)
			}
		}

		offset := start + page*s.opts.PageSize
		res := s.fetcher.Fetch(ctx, BuildSearchURL(s.opts.SearchBase, q, offset))
		if res.Absent() {
			if page == 0 {
				return s.firstPageFailure(ctx, q, res)
			}
			s.opts.Logger.Warn("stopping pagination after failed page",
				"keywords", q.Keywords, "offset", offset, "outcome", res.Outcome.String(), "error", res.Err)
			break
		}

		added := 0
		lastPage = 0
		for _, c := range markup.ExtractCards(res.Doc) {
			if c.ID == "" {
				continue
			}
			lastPage++
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			jobs = append(jobs, s.jobFromCard(c))
			added++
		}
		usable += lastPage

		s.opts.Logger.Debug("fetched search page",
			"keywords", q.Keywords, "offset", offset, "cards", lastPage, "new", added)

		if lastPage == 0 || added == 0 || len(jobs) >= q.MaxResults {
			break
		}
	}

	if len(jobs) > q.MaxResults {
		jobs = jobs[:q.MaxResults]
	}

	if !q.SkipDescriptions {
		if err := s.enrich(ctx, jobs); err != nil {
			return model.SearchResult{}, fmt.Errorf("search %q: %w", q.Keywords, err)
		}
	}

	result := model.SearchResult{
		Items:         jobs,
		TotalEstimate: start + usable,
		HasMore:       lastPage >= s.opts.PageSize,
	}
	s.searches.Set(key, result)

	s.opts.Logger.Info("search completed",
		"keywords", q.Keywords, "location", q.Location, "items", len(jobs), "has_more", result.HasMore)
	return result, nil
}

// firstPageFailure maps an absent first page to the caller-visible result.
func (s *Service) firstPageFailure(ctx context.Context, q model.Query, res fetch.Result) (model.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return model.SearchResult{}, fmt.Errorf("search %q: %w", q.Keywords, err)
	}
	if res.Outcome == fetch.NotFound || res.RateLimited() {
		s.opts.Logger.Warn("search returned no page",
			"keywords", q.Keywords, "outcome", res.Outcome.String(), "status", res.Status)
		return model.SearchResult{Items: []model.Job{}}, nil
	}
	return model.SearchResult{}, &model.UnavailableError{
		RetryAfter: s.opts.UnavailableRetryAfter,
		Err:        fmt.Errorf("search %q: %w", q.Keywords, res.Err),
	}
}

func (s *Service) jobFromCard(c markup.Card) model.Job {
	return model.Job{
		ID:         c.ID,
		Title:      c.Title,
		Company:    c.Company,
		Location:   c.Location,
		PostingAge: c.PostingAge,
		URL:        ListingURL(s.opts.ListingBase, c.ID),
	}
}

// enrich fills in descriptions concurrently. A failed description becomes
// the placeholder and never fails its siblings; only cancellation is
// returned.
func (s *Service) enrich(ctx context.Context, jobs []model.Job) error {
	var (
		mu    sync.Mutex
		descs = make(map[string]string, len(jobs))
		g     errgroup.Group
	)
	g.SetLimit(s.opts.Concurrency)

	for _, job := range jobs {
		id := job.ID
		g.Go(func() error {
			desc, err := s.Describe(ctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			descs[id] = desc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range jobs {
		if d := descs[jobs[i].ID]; d != "" {
			jobs[i].Description = d
		} else {
			jobs[i].Description = model.DescriptionUnavailable
		}
	}
	return nil
}

// Describe returns the description of a listing, or "" when the id is
// malformed or the listing cannot be fetched. Only cancellation is an error.
func (s *Service) Describe(ctx context.Context, jobID string) (string, error) {
	jobID = strings.TrimSpace(jobID)
	if !markup.IsJobID(jobID) {
		return "", nil
	}

	key := descriptionKey(jobID)
	if desc, ok := s.descriptions.Get(key); ok {
		return desc, nil
	}

	v, _, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		if desc, ok := s.descriptions.Get(key); ok {
			return desc, nil
		}
		res := s.fetcher.Fetch(ctx, ListingURL(s.opts.ListingBase, jobID))
		if res.Absent() {
			s.opts.Logger.Debug("description unavailable",
				"job_id", jobID, "outcome", res.Outcome.String(), "status", res.Status)
			return "", nil
		}
		desc := markup.ExtractDescription(res.Doc)
		if desc != "" {
			s.descriptions.Set(key, desc)
		}
		return desc, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("describe %s: %w", jobID, err)
		}
		return "", err
	}
	return v.(string), nil
}

// shared runs fn once per key across concurrent callers. fn gets a context
// that keeps the caller's values but not its cancellation, so one caller
// giving up never fails the others; each caller stops waiting when its own
// ctx is done.
func (s *Service) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) { return fn(detached) })
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-ch:
		return r.Val, r.Shared, r.Err
	}
}

// GetByURL fetches a single listing from its URL. The URL must point at a
// listing on the configured host; otherwise model.ErrInvalidJobURL is
// returned. A listing the upstream does not have yields model.ErrNotFound.
func (s *Service) GetByURL(ctx context.Context, rawURL string) (model.Job, error) {
	id, err := s.parseListingURL(rawURL)
	if err != nil {
		return model.Job{}, err
	}

	canonical := ListingURL(s.opts.ListingBase, id)
	res := s.fetcher.Fetch(ctx, canonical)
	if res.Absent() {
		if err := ctx.Err(); err != nil {
			return model.Job{}, fmt.Errorf("lookup %s: %w", id, err)
		}
		return model.Job{}, fmt.Errorf("lookup %s: %w", id, model.ErrNotFound)
	}

	l, ok := markup.ExtractListing(res.Doc)
	if !ok {
		return model.Job{}, fmt.Errorf("lookup %s: %w", id, model.ErrNotFound)
	}

	job := model.Job{
		ID:          id,
		Title:       l.Title,
		Company:     l.Company,
		Location:    l.Location,
		PostingAge:  l.PostingAge,
		URL:         canonical,
		Description: l.Description,
	}
	if job.Description != "" {
		s.descriptions.Set(descriptionKey(id), job.Description)
	} else {
		job.Description = model.DescriptionUnavailable
	}
	return job, nil
}

func (s *Service) parseListingURL(rawURL string) (string, error) {
	invalid := fmt.Errorf("%w: %q", model.ErrInvalidJobURL, rawURL)

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", invalid
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", invalid
	}
	host := strings.ToLower(u.Hostname())
	if host != s.listingHost && !strings.HasSuffix(host, "."+s.listingHost) {
		return "", invalid
	}
	if !strings.HasPrefix(u.Path, "/jobs/view/") {
		return "", invalid
	}
	id, ok := markup.JobIDFromURL(u.String())
	if !ok {
		return "", invalid
	}
	return id, nil
}

var (
	_ model.JobSearcher = (*Service)(nil)
	_ PageFetcher       = (*fetch.Fetcher)(nil)
)

