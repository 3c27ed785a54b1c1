package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/poller"
)

// DefaultRetention is how long reported listings are remembered.
const DefaultRetention = 30 * 24 * time.Hour

// Scheduler owns the main loop: ticks on an interval and runs each watch sequentially.
type Scheduler struct {
	pollers   []*poller.WatchPoller
	store     model.JobStore
	interval  time.Duration
	pause     time.Duration // between watches
	retention time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a scheduler that polls all watches at the given interval.
func NewScheduler(pollers []*poller.WatchPoller, store model.JobStore, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		pollers:   pollers,
		store:     store,
		interval:  interval,
		pause:     time.Second,
		retention: DefaultRetention,
		logger:    logger,
	}
}

// Run starts the polling loop. It runs one immediate cycle, then ticks on the
// configured interval. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"interval", s.interval.String(),
		"watches", len(s.pollers),
	)

	// Run one immediate poll cycle.
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
			s.RunOnce(ctx)
		}
	}
}

// RunOnce polls every watch once, then forgets listings older than the
// retention period.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for i, p := range s.pollers {
		if ctx.Err() != nil {
			return
		}

		if _, err := p.Poll(ctx); err != nil {
			s.logger.Error("poll failed",
				"watch", p.Name,
				"error", err,
			)
		}

		// Small pause between watches, except after the last one.
		if i < len(s.pollers)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.pause):
			}
		}
	}

	if err := s.store.Cleanup(s.retention); err != nil {
		s.logger.Warn("cleanup failed", "error", err)
	}
}
