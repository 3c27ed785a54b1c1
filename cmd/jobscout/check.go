package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll every watch once, notify, exit",
	Long:  "One-shot poll: runs each enabled watch once and reports every match through the configured notifier. Does not write to the store.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()

	logger.Info("check mode: no listings will be marked as seen")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := newService(ctx, cfg, logger)
	defer closeService(svc, logger)

	n := setupNotifier(cfg, &http.Client{Timeout: 30 * time.Second}, logger)
	pollers := buildPollers(cfg, svc, store.NewNopStore(), n, logger)
	if len(pollers) == 0 {
		logger.Error("no enabled watches to poll")
		os.Exit(1)
	}

	total := 0
	for _, p := range pollers {
		found, err := p.Poll(ctx)
		if err != nil {
			logger.Error("poll failed", "watch", p.Name, "error", err)
			continue
		}
		total += len(found)
	}

	logger.Info("check complete", "matches", total)
	return nil
}
