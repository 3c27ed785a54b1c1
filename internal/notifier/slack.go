package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobscout/internal/clock"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/retry"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

const (
	defaultMessageInterval = 500 * time.Millisecond
	maxSnippetRunes        = 280
)

// SlackNotifier sends listing alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	pace       *rate.Limiter
	clock      clock.Clock
	logger     *slog.Logger
}

// SlackOption customizes a SlackNotifier.
type SlackOption func(*SlackNotifier)

// WithMessageInterval sets the minimum gap between two webhook posts.
// Zero disables pacing.
func WithMessageInterval(d time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		if d <= 0 {
			s.pace = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.pace = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithClock replaces the clock used for Retry-After waits.
func WithClock(c clock.Clock) SlackOption {
	return func(s *SlackNotifier) { s.clock = c }
}

// NewSlackNotifier returns a notifier that posts each listing to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		pace:       rate.NewLimiter(rate.Every(defaultMessageInterval), 1),
		clock:      clock.Real{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify sends each listing as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(watch string, jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	ctx := context.Background()
	failures := 0
	for _, j := range jobs {
		if err := s.pace.Wait(ctx); err != nil {
			return fmt.Errorf("slack pacing: %w", err)
		}
		if err := s.sendMessage(ctx, watch, j); err != nil {
			s.logger.Error("slack notification failed", "company", j.Company, "title", j.Title, "error", err)
			failures++
		}
	}

	sent := len(jobs) - failures
	if failures == len(jobs) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "watch", watch, "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(ctx context.Context, watch string, j model.Job) error {
	body, err := json.Marshal(buildPayload(watch, j))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(body)
	if err != nil {
		return err
	}

	if status == http.StatusTooManyRequests {
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		if err := s.clock.Sleep(ctx, retryAfter); err != nil {
			return fmt.Errorf("slack retry wait: %w", err)
		}

		status, _, err = s.post(body)
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		s.logger.Info("slack message sent", "company", j.Company, "title", j.Title, "retried", true)
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack message sent", "company", j.Company, "title", j.Title)
	return nil
}

func (s *SlackNotifier) post(body []byte) (int, time.Duration, error) {
	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, retry.ParseRetryAfter(resp.Header.Get("Retry-After")), nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a sample listing to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	testJob := model.Job{
		ID:          "0000000000",
		Company:     "jobscout",
		Title:       "Test Notification: Integration Verified",
		Location:    "Everywhere",
		PostingAge:  "just now",
		URL:         "https://www.linkedin.com/jobs/",
		Description: "If you can read this, notifications are configured correctly.",
	}
	return n.Notify("test", []model.Job{testJob})
}

// snippet shortens a description to its first paragraph, at most
// maxSnippetRunes long.
func snippet(desc string) string {
	if desc == "" || desc == model.DescriptionUnavailable {
		return ""
	}
	if i := strings.IndexByte(desc, '\n'); i >= 0 {
		desc = desc[:i]
	}
	if utf8.RuneCountInString(desc) <= maxSnippetRunes {
		return desc
	}
	runes := []rune(desc)
	return string(runes[:maxSnippetRunes]) + "…"
}

func buildPayload(watch string, j model.Job) slackPayload {
	posted := j.PostingAge
	if posted == "" {
		posted = "Just detected"
	}
	location := j.Location
	if location == "" {
		location = "Not listed"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: j.Company + ": " + j.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + j.Company},
				{Type: "mrkdwn", Text: "*Location:*\n" + location},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Posted:*\n" + posted},
				{Type: "mrkdwn", Text: "*Watch:*\n" + watch},
			},
		},
	}

	if s := snippet(j.Description); s != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: s},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "View Listing"},
					URL:   j.URL,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
