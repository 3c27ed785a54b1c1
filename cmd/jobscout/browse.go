package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/browse"
	"github.com/amishk599/jobscout/internal/config"
	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/search"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse saved searches interactively (TUI)",
	Long:  "Shows the watch picker, runs the chosen search, then opens a split-pane view of all results against the ones your filters keep.",
	RunE:  runBrowseCmd,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowseCmd(cmd *cobra.Command, args []string) error {
	cfg, _ := mustLoad()
	if len(cfg.Watches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No watches in config.")
		return nil
	}

	// The TUI owns the terminal; any log output would corrupt the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := newService(ctx, cfg, silentLogger)
	defer svc.Close()

	runBrowse(cfg, svc)
	return nil
}

func runBrowse(cfg *config.Config, svc *search.Service) {
	jobFilter := filter.FromConfig(cfg.Filters)

	for {
		choice, err := browse.RunWatchPicker(cfg.Watches)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return
		}
		if choice < 0 {
			return
		}
		w := cfg.Watches[choice]

		res, err := browse.RunLoader(w.Name, func(ctx context.Context) (model.SearchResult, error) {
			return svc.Search(ctx, w.Query())
		})
		if err != nil {
			fmt.Printf("Search failed: %v\n", reportUnavailable(err))
			continue
		}

		var matched []model.Job
		for _, j := range res.Items {
			if jobFilter.Match(j) {
				matched = append(matched, j)
			}
		}

		wantQuit, err := browse.RunBrowseTUI(w.Name, res.Items, matched, svc)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
	}
}
