package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/config"
	"github.com/amishk599/jobscout/internal/fetch"
	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/notifier"
	"github.com/amishk599/jobscout/internal/poller"
	"github.com/amishk599/jobscout/internal/ratelimit"
	"github.com/amishk599/jobscout/internal/retry"
	"github.com/amishk599/jobscout/internal/search"
)

const defaultConfigPath = "config.yaml"

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobscout",
	Short: "Search job listings and watch for new ones",
	Long:  "jobscout searches a public job board, enriches listings with their descriptions, and alerts you to new matches for saved searches.",
	// Default to `watch` so that `jobscout` with no args runs the daemon.
	RunE:         runWatch,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSCOUT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSCOUT_CONFIG env var > "./config.yaml".
// A missing ./config.yaml falls back to the built-in defaults; an explicit
// path that does not exist is an error.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("JOBSCOUT_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		path = defaultConfigPath
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// mustLoad returns the logger and config, exiting when the config is invalid.
func mustLoad() (*config.Config, *slog.Logger) {
	logger := setupLogger(debug)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// newService wires the limiter, fetcher and caches described by cfg. Every
// request made through the returned service shares one rate limiter.
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger) *search.Service {
	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.Calls, cfg.RateLimit.Period, nil)
	logger.Debug("rate limiter configured", "calls", cfg.RateLimit.Calls, "period", cfg.RateLimit.Period.String())

	fetcher := fetch.New(&http.Client{}, limiter, fetch.Options{
		Policy: retry.Policy{
			Attempts:  cfg.Retry.Attempts,
			BaseDelay: cfg.Retry.BaseDelay,
			MaxDelay:  cfg.Retry.MaxDelay,
			Jitter:    cfg.Retry.Jitter,
		},
		Timeout:    cfg.Upstream.Timeout,
		UserAgents: cfg.Upstream.UserAgents,
		Logger:     logger,
	})

	svc := search.NewService(fetcher, search.Options{
		SearchBase:        cfg.Upstream.SearchBase,
		ListingBase:       cfg.Upstream.ListingBase,
		PageSize:          cfg.Search.PageSize,
		MaxResults:        cfg.Search.MaxResults,
		Concurrency:       cfg.Search.Concurrency,
		PageDelay:         cfg.Search.PageDelay,
		BaseTTL:           cfg.Cache.BaseTTL,
		SearchMaxAge:      cfg.Cache.SearchMaxAge,
		DescriptionMaxAge: cfg.Cache.DescriptionMaxAge,
		SweepInterval:     cfg.Cache.SweepInterval,
		Logger:            logger,
	})
	svc.Start(ctx)
	return svc
}

// closeService stops the cache sweepers and logs what the caches did.
func closeService(svc *search.Service, logger *slog.Logger) {
	svc.Close()
	st := svc.Stats()
	logger.Debug("cache stats",
		"search_entries", st.Searches.Entries,
		"search_hits", st.Searches.Hits,
		"search_misses", st.Searches.Misses,
		"description_entries", st.Descriptions.Entries,
		"description_hits", st.Descriptions.Hits,
		"description_misses", st.Descriptions.Misses,
	)
}

func buildPollers(cfg *config.Config, searcher model.JobSearcher, jobStore model.JobStore, n model.Notifier, logger *slog.Logger) []*poller.WatchPoller {
	jobFilter := filter.FromConfig(cfg.Filters)

	var pollers []*poller.WatchPoller
	for _, w := range cfg.EnabledWatches() {
		p := poller.NewWatchPoller(w.Name, w.Query(), searcher, jobFilter, jobStore, n, logger)
		pollers = append(pollers, p)
		logger.Info("registered watch", "name", w.Name, "keywords", w.Keywords, "location", w.Location)
	}
	return pollers
}

// reportUnavailable prints a friendly message for upstream outages and
// returns err unchanged for everything else.
func reportUnavailable(err error) error {
	var unavailable *model.UnavailableError
	if errors.As(err, &unavailable) {
		return fmt.Errorf("job board unavailable, try again in %v", unavailable.RetryAfter)
	}
	return err
}
