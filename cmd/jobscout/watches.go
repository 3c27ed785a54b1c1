package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/store"
)

var watchesCmd = &cobra.Command{
	Use:   "watches",
	Short: "List all saved searches",
	Long:  "Reads the config and prints a table of all saved searches.",
	RunE:  runWatches,
}

var seenLimit int

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "List the most recently seen listings",
	Long:  "Prints the newest rows of the seen-listing store used by the watch daemon.",
	RunE:  runSeen,
}

func init() {
	seenCmd.Flags().IntVarP(&seenLimit, "limit", "n", 20, "number of listings to show")
	rootCmd.AddCommand(watchesCmd, seenCmd)
}

func runWatches(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-20s %-30s %-20s %s\n", "Watch", "Keywords", "Location", "Status")
	fmt.Fprintln(out, strings.Repeat("─", 80))

	enabled, disabled := 0, 0
	for _, w := range cfg.Watches {
		status := "enabled"
		if !w.Enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		fmt.Fprintf(out, "%-20s %-30s %-20s %s\n", w.Name, w.Keywords, w.Location, status)
	}

	fmt.Fprintf(out, "\nTotal: %d watches (%d enabled, %d disabled)\n", len(cfg.Watches), enabled, disabled)
	return nil
}

func runSeen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	s, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.Recent(seenLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No listings seen yet.")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%s  %-15s %s @ %s\n   %s\n", r.FirstSeen.Local().Format("2006-01-02 15:04"), r.Watch, r.Title, r.Company, r.URL)
	}
	return nil
}
