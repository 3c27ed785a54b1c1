package model

import (
	"errors"
	"testing"
	"time"
)

func TestQueryNormalize(t *testing.T) {
	q := Query{
		Keywords:   "  Go   Engineer ",
		Location:   "San  Francisco",
		JobType:    "Full_Time",
		Remote:     " Remote",
		Experience: "Mid Senior",
		DatePosted: "PAST-WEEK",
		Page:       -3,
	}.Normalize()

	if q.Keywords != "go engineer" {
		t.Errorf("keywords = %q", q.Keywords)
	}
	if q.Location != "san francisco" {
		t.Errorf("location = %q", q.Location)
	}
	if q.JobType != "full-time" {
		t.Errorf("job type = %q", q.JobType)
	}
	if q.Remote != "remote" {
		t.Errorf("remote = %q", q.Remote)
	}
	if q.Experience != "mid-senior" {
		t.Errorf("experience = %q", q.Experience)
	}
	if q.DatePosted != "past-week" {
		t.Errorf("date posted = %q", q.DatePosted)
	}
	if q.Page != 0 {
		t.Errorf("page = %d, want 0", q.Page)
	}
}

func TestSearchResultClone(t *testing.T) {
	orig := SearchResult{Items: []Job{{ID: "1", Title: "Engineer"}}, TotalEstimate: 1}
	c := orig.Clone()
	c.Items[0].Title = "changed"

	if orig.Items[0].Title != "Engineer" {
		t.Fatal("clone shares memory with original")
	}
}

func TestUnavailableError_Unwrap(t *testing.T) {
	inner := &HTTPError{StatusCode: 503}
	err := error(&UnavailableError{RetryAfter: time.Minute, Err: inner})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 503 {
		t.Fatalf("expected wrapped HTTPError 503, got %v", err)
	}
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) || unavailable.RetryAfter != time.Minute {
		t.Fatalf("expected UnavailableError with 1m retry, got %v", err)
	}
}
