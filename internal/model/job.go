package model

import (
	"context"
	"strings"
	"time"
)

// DescriptionUnavailable replaces a description that could not be fetched
// during enrichment.
const DescriptionUnavailable = "Description not available"

// Job is the summary of a single listing extracted from a search card or a
// listing page.
type Job struct {
	ID          string // upstream listing identifier (digits)
	Title       string
	Company     string
	Location    string // may be empty
	PostingAge  string // free text such as "2 days ago", may be empty
	URL         string // canonical listing URL
	Description string // empty until fetched; DescriptionUnavailable on failure
}

// DescriptionFetched reports whether enrichment has run for this job.
func (j Job) DescriptionFetched() bool {
	return j.Description != ""
}

// Query is a logical search request.
type Query struct {
	Keywords   string
	Location   string
	JobType    string // full-time, part-time, contract, ...
	Remote     string // on-site, remote, hybrid
	Experience string // internship, entry, associate, mid-senior, director, executive
	DatePosted string // past-24h, past-week, past-month
	SortBy     string // recent, relevant
	Page       int    // zero based
	MaxResults int

	// SkipDescriptions leaves Description empty on every returned job.
	SkipDescriptions bool
}

// Normalize lowercases and collapses whitespace in every text field and
// clamps Page to be non-negative. MaxResults is left to the caller, which
// owns the defaults.
func (q Query) Normalize() Query {
	q.Keywords = collapse(q.Keywords)
	q.Location = collapse(q.Location)
	q.JobType = facet(q.JobType)
	q.Remote = facet(q.Remote)
	q.Experience = facet(q.Experience)
	q.DatePosted = facet(q.DatePosted)
	q.SortBy = facet(q.SortBy)
	if q.Page < 0 {
		q.Page = 0
	}
	return q
}

func collapse(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// facet values accept "Full Time", "full_time" and "full-time" alike.
func facet(s string) string {
	s = collapse(s)
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	return s
}

// SearchResult is the answer to a Query.
type SearchResult struct {
	Items         []Job
	TotalEstimate int
	HasMore       bool
}

// Clone returns a copy that shares no slice memory with r.
func (r SearchResult) Clone() SearchResult {
	if r.Items != nil {
		items := make([]Job, len(r.Items))
		copy(items, r.Items)
		r.Items = items
	}
	return r
}

// JobSearcher runs searches and fetches descriptions on demand.
type JobSearcher interface {
	Search(ctx context.Context, q Query) (SearchResult, error)
	Describe(ctx context.Context, jobID string) (string, error)
}

// JobStore tracks which listings have already been reported.
type JobStore interface {
	HasSeen(jobID string) (bool, error)
	MarkSeen(watch string, job Job) error
	Cleanup(olderThan time.Duration) error
	IsEmpty() (bool, error)
}

// Notifier sends notifications for new job matches.
type Notifier interface {
	Notify(search string, jobs []Job) error
}

// JobFilter decides whether a job matches the user's criteria.
type JobFilter interface {
	Match(job Job) bool
}
