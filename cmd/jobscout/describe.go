package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/model"
)

var describeCmd = &cobra.Command{
	Use:   "describe <listing-id>",
	Short: "Print the description of one listing",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

var lookupJSON bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <listing-url>",
	Short: "Fetch a single listing by its URL",
	Long:  "Fetches the listing page behind a job URL and prints its title, company, location, posting age and description.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "print the listing as JSON")
	rootCmd.AddCommand(describeCmd, lookupCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := newService(ctx, cfg, logger)
	defer closeService(svc, logger)

	desc, err := svc.Describe(ctx, args[0])
	if err != nil {
		return err
	}
	if desc == "" {
		desc = model.DescriptionUnavailable
	}
	fmt.Fprintln(cmd.OutOrStdout(), desc)
	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := newService(ctx, cfg, logger)
	defer closeService(svc, logger)

	job, err := svc.GetByURL(ctx, args[0])
	switch {
	case errors.Is(err, model.ErrInvalidJobURL):
		return fmt.Errorf("not a job listing URL: %s", args[0])
	case errors.Is(err, model.ErrNotFound):
		return fmt.Errorf("listing not found: %s", args[0])
	case err != nil:
		return reportUnavailable(err)
	}

	if lookupJSON {
		return writeJSON(cmd.OutOrStdout(), model.SearchResult{Items: []model.Job{job}, TotalEstimate: 1})
	}
	printJob(cmd.OutOrStdout(), 1, job)
	return nil
}
