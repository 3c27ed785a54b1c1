package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/model"
)

var (
	searchQuery  model.Query
	searchNoDesc bool
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <keywords>",
	Short: "Search listings and print them",
	Long:  "Runs one search against the job board, fetches each listing's description, and prints the results.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchQuery.Location, "location", "l", "", "location to search in")
	f.StringVar(&searchQuery.JobType, "job-type", "", "full-time, part-time, contract, temporary, volunteer, internship")
	f.StringVar(&searchQuery.Remote, "remote", "", "on-site, remote, hybrid")
	f.StringVar(&searchQuery.Experience, "experience", "", "internship, entry, associate, mid-senior, director, executive")
	f.StringVar(&searchQuery.DatePosted, "date-posted", "", "past-24h, past-week, past-month")
	f.StringVar(&searchQuery.SortBy, "sort", "", "recent or relevant")
	f.IntVarP(&searchQuery.Page, "page", "p", 0, "zero-based result page")
	f.IntVarP(&searchQuery.MaxResults, "max", "n", 0, "maximum listings to return (default from config)")
	f.BoolVar(&searchNoDesc, "no-descriptions", false, "skip fetching listing descriptions")
	f.BoolVar(&searchJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := newService(ctx, cfg, logger)
	defer closeService(svc, logger)

	q := searchQuery
	q.Keywords = strings.Join(args, " ")
	q.SkipDescriptions = searchNoDesc || !cfg.Search.Describe

	res, err := svc.Search(ctx, q)
	if err != nil {
		return reportUnavailable(err)
	}

	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res model.SearchResult) {
	if len(res.Items) == 0 {
		fmt.Fprintln(w, "No listings found.")
		return
	}
	for i, j := range res.Items {
		printJob(w, i+1, j)
	}
	more := ""
	if res.HasMore {
		more = " (more available)"
	}
	fmt.Fprintf(w, "Showing %d of about %d listings%s\n", len(res.Items), res.TotalEstimate, more)
}

func printJob(w io.Writer, n int, j model.Job) {
	fmt.Fprintf(w, "%d. %s\n", n, j.Title)
	meta := []string{j.Company}
	if j.Location != "" {
		meta = append(meta, j.Location)
	}
	if j.PostingAge != "" {
		meta = append(meta, j.PostingAge)
	}
	fmt.Fprintf(w, "   %s\n", strings.Join(meta, " · "))
	fmt.Fprintf(w, "   %s\n", j.URL)
	if j.Description != "" {
		fmt.Fprintln(w)
		for _, line := range strings.Split(j.Description, "\n") {
			fmt.Fprintf(w, "   %s\n", line)
		}
	}
	fmt.Fprintln(w)
}

type jsonJob struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location,omitempty"`
	PostingAge  string `json:"posting_age,omitempty"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

func toJSONJob(j model.Job) jsonJob {
	return jsonJob{
		ID:          j.ID,
		Title:       j.Title,
		Company:     j.Company,
		Location:    j.Location,
		PostingAge:  j.PostingAge,
		URL:         j.URL,
		Description: j.Description,
	}
}

func writeJSON(w io.Writer, res model.SearchResult) error {
	out := struct {
		Items         []jsonJob `json:"items"`
		TotalEstimate int       `json:"total_estimate"`
		HasMore       bool      `json:"has_more"`
	}{
		Items:         make([]jsonJob, 0, len(res.Items)),
		TotalEstimate: res.TotalEstimate,
		HasMore:       res.HasMore,
	}
	for _, j := range res.Items {
		out.Items = append(out.Items, toJSONJob(j))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
