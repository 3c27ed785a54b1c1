package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/scheduler"
	"github.com/amishk599/jobscout/internal/store"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"start"},
	Short:   "Start the watch daemon",
	Long:    "Polls every enabled saved search on the configured interval and notifies about new listings; blocks until SIGINT/SIGTERM.",
	RunE:    runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()

	logger.Info("config loaded",
		"interval", cfg.PollingInterval.String(),
		"watches", len(cfg.EnabledWatches()),
		"title_keywords", len(cfg.Filters.TitleKeywords),
		"locations", len(cfg.Filters.Locations),
		"store", cfg.StorePath,
	)

	sqlStore, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := newService(ctx, cfg, logger)
	defer closeService(svc, logger)

	n := setupNotifier(cfg, &http.Client{Timeout: 30 * time.Second}, logger)
	pollers := buildPollers(cfg, svc, sqlStore, n, logger)
	if len(pollers) == 0 {
		logger.Error("no enabled watches to poll")
		os.Exit(1)
	}

	// An empty store means first run: record what is live today without
	// flooding the notifier.
	empty, err := sqlStore.IsEmpty()
	if err != nil {
		logger.Error("failed to inspect store", "error", err)
		os.Exit(1)
	}
	if empty {
		logger.Info("empty store, first cycle will seed without notifying")
		for _, p := range pollers {
			p.SeedOnNextPoll()
		}
	}

	sched := scheduler.NewScheduler(pollers, sqlStore, cfg.PollingInterval, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
