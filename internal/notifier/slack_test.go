package notifier

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/clock"
	"github.com/amishk599/jobscout/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleJob(title, company string) model.Job {
	return model.Job{
		ID:          "123",
		Company:     company,
		Title:       title,
		Location:    "Remote, US",
		PostingAge:  "3 hours ago",
		URL:         "https://example.com/apply",
		Description: "Build the things.\n• Go\n• SQL",
	}
}

func newTestNotifier(url string, client *http.Client, opts ...SlackOption) *SlackNotifier {
	opts = append([]SlackOption{WithMessageInterval(0)}, opts...)
	return NewSlackNotifier(url, client, discardLogger(), opts...)
}

func TestSlackNotifier_EmptyJobs(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL, srv.Client())

	if err := n.Notify("w", nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if err := n.Notify("w", []model.Job{}); err != nil {
		t.Errorf("Notify([]) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_SingleJob(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL, srv.Client())
	if err := n.Notify("go-berlin", []model.Job{sampleJob("Backend Engineer", "Acme Corp")}); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(payload.Blocks))
	}
	if got := payload.Blocks[0].Text.Text; got != "Acme Corp: Backend Engineer" {
		t.Errorf("header text = %q, want company: title", got)
	}
	if got := payload.Blocks[1].Fields[0].Text; got != "*Company:*\nAcme Corp" {
		t.Errorf("company field = %q", got)
	}
	if got := payload.Blocks[2].Fields[1].Text; got != "*Watch:*\ngo-berlin" {
		t.Errorf("watch field = %q", got)
	}
	if got := payload.Blocks[3].Text.Text; got != "Build the things." {
		t.Errorf("snippet = %q, want first line of description", got)
	}
	if got := payload.Blocks[4].Elements[0].URL; got != "https://example.com/apply" {
		t.Errorf("action URL = %q", got)
	}
}

func TestSlackNotifier_MultipleJobs(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL, srv.Client())
	jobs := []model.Job{
		sampleJob("Engineer 1", "A"),
		sampleJob("Engineer 2", "B"),
		sampleJob("Engineer 3", "C"),
	}

	if err := n.Notify("w", jobs); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}
	if c := calls.Load(); c != 3 {
		t.Errorf("expected 3 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_PacesMessages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger(), WithMessageInterval(50*time.Millisecond))
	jobs := []model.Job{sampleJob("A", "X"), sampleJob("B", "Y"), sampleJob("C", "Z")}

	start := time.Now()
	if err := n.Notify("w", jobs); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}
	// first message goes out immediately, the next two wait one interval each
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected paced sends to take >= 100ms, took %v", elapsed)
	}
}

func TestSlackNotifier_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL, srv.Client())
	jobs := []model.Job{
		sampleJob("A", "X"),
		sampleJob("B", "Y"),
		sampleJob("C", "Z"),
	}

	if err := n.Notify("w", jobs); err == nil {
		t.Error("expected error when all messages fail, got nil")
	}
}

func TestSlackNotifier_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL, srv.Client())
	jobs := []model.Job{
		sampleJob("Fails", "A"),
		sampleJob("Succeeds", "B"),
	}

	if err := n.Notify("w", jobs); err != nil {
		t.Errorf("expected nil (partial success), got %v", err)
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "4")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clk := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	n := newTestNotifier(srv.URL, srv.Client(), WithClock(clk))
	if err := n.Notify("w", []model.Job{sampleJob("Rate Limited Job", "Test")}); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
	if slept, naps := clk.Slept(); slept != 4*time.Second || naps != 1 {
		t.Errorf("expected one 4s wait, got %v over %d naps", slept, naps)
	}
}

func TestSlackNotifier_RateLimitedTwice(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	clk := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	n := newTestNotifier(srv.URL, srv.Client(), WithClock(clk))
	if err := n.Notify("w", []model.Job{sampleJob("X", "Y")}); err == nil {
		t.Fatal("expected error when retry is also rate limited")
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected exactly one retry, got %d calls", c)
	}
	// no Retry-After header falls back to one second
	if slept, _ := clk.Slept(); slept != time.Second {
		t.Errorf("expected 1s fallback wait, got %v", slept)
	}
}

func TestSlackNotifier_PayloadFormat(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL, srv.Client())
	job := model.Job{
		ID:          "456",
		Company:     "TestCo",
		Title:       "SRE",
		URL:         "https://example.com/sre",
		Description: model.DescriptionUnavailable,
	}

	if err := n.Notify("sre", []model.Job{job}); err != nil {
		t.Fatalf("Notify() = %v", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// placeholder descriptions get no snippet block
	if len(payload.Blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" {
		t.Errorf("block[0] type = %q, want header", payload.Blocks[0].Type)
	}
	if got := payload.Blocks[1].Fields[1].Text; got != "*Location:*\nNot listed" {
		t.Errorf("location field = %q", got)
	}
	if got := payload.Blocks[2].Fields[0].Text; got != "*Posted:*\nJust detected" {
		t.Errorf("posted field = %q, want 'Just detected' for empty posting age", got)
	}
	if payload.Blocks[3].Type != "actions" || len(payload.Blocks[3].Elements) != 1 {
		t.Errorf("block[3] not a single-element actions block")
	}
	if payload.Blocks[3].Elements[0].Style != "primary" {
		t.Errorf("button style = %q, want primary", payload.Blocks[3].Elements[0].Style)
	}
	if payload.Blocks[4].Type != "divider" {
		t.Errorf("block[4] type = %q, want divider", payload.Blocks[4].Type)
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", maxSnippetRunes+20)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"placeholder", model.DescriptionUnavailable, ""},
		{"first line", "Intro line\n• detail", "Intro line"},
		{"truncated", long, strings.Repeat("a", maxSnippetRunes) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snippet(tt.in); got != tt.want {
				t.Errorf("snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSendTestMessage(t *testing.T) {
	rec := &recordingNotifier{}
	if err := SendTestMessage(rec); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if rec.watch != "test" || len(rec.jobs) != 1 || rec.jobs[0].Company != "jobscout" {
		t.Errorf("unexpected test notification: watch=%q jobs=%+v", rec.watch, rec.jobs)
	}
}

type recordingNotifier struct {
	watch string
	jobs  []model.Job
}

func (r *recordingNotifier) Notify(watch string, jobs []model.Job) error {
	r.watch = watch
	r.jobs = jobs
	return nil
}
