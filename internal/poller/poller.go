package poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobscout/internal/model"
)

// WatchPoller owns the full poll pipeline for a single saved search:
// search → filter → dedup → describe → notify → mark seen.
type WatchPoller struct {
	Name     string
	query    model.Query
	searcher model.JobSearcher
	filter   model.JobFilter
	store    model.JobStore
	notifier model.Notifier
	logger   *slog.Logger

	// seed makes the next Poll record every match as seen without
	// notifying, so a fresh store does not flood the notifier.
	seed bool
}

// NewWatchPoller creates a poller wired with all its dependencies.
func NewWatchPoller(
	name string,
	query model.Query,
	searcher model.JobSearcher,
	filter model.JobFilter,
	store model.JobStore,
	notifier model.Notifier,
	logger *slog.Logger,
) *WatchPoller {
	return &WatchPoller{
		Name:     name,
		query:    query,
		searcher: searcher,
		filter:   filter,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// SeedOnNextPoll marks the next cycle as a seeding run.
func (p *WatchPoller) SeedOnNextPoll() {
	p.seed = true
}

// Poll runs one poll cycle and returns the listings that were reported.
func (p *WatchPoller) Poll(ctx context.Context) ([]model.Job, error) {
	res, err := p.searcher.Search(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("polling %s: %w", p.Name, err)
	}

	var matched []model.Job
	for _, job := range res.Items {
		if p.filter.Match(job) {
			matched = append(matched, job)
		}
	}

	var newJobs []model.Job
	for _, job := range matched {
		seen, err := p.store.HasSeen(job.ID)
		if err != nil {
			return nil, fmt.Errorf("polling %s: checking seen status: %w", p.Name, err)
		}
		if !seen {
			newJobs = append(newJobs, job)
		}
	}

	if p.seed {
		p.seed = false
		for _, job := range newJobs {
			if err := p.store.MarkSeen(p.Name, job); err != nil {
				return nil, fmt.Errorf("polling %s: seeding: %w", p.Name, err)
			}
		}
		p.logger.Info("seeded watch", "watch", p.Name, "listings", len(newJobs))
		return nil, nil
	}

	for i := range newJobs {
		if newJobs[i].DescriptionFetched() {
			continue
		}
		desc, err := p.searcher.Describe(ctx, newJobs[i].ID)
		if err != nil {
			return nil, fmt.Errorf("polling %s: describing %s: %w", p.Name, newJobs[i].ID, err)
		}
		if desc == "" {
			desc = model.DescriptionUnavailable
		}
		newJobs[i].Description = desc
	}

	if len(newJobs) > 0 {
		if err := p.notifier.Notify(p.Name, newJobs); err != nil {
			return nil, fmt.Errorf("polling %s: notifying: %w", p.Name, err)
		}
	}

	for _, job := range newJobs {
		if err := p.store.MarkSeen(p.Name, job); err != nil {
			return nil, fmt.Errorf("polling %s: marking seen: %w", p.Name, err)
		}
	}

	p.logger.Info("polled watch",
		"watch", p.Name,
		"fetched", len(res.Items),
		"matched", len(matched),
		"new", len(newJobs),
	)

	return newJobs, nil
}
