package notifier

import (
	"log/slog"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new listings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each listing via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each listing. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(watch string, jobs []model.Job) error {
	for _, j := range jobs {
		args := []any{"watch", watch, "id", j.ID, "company", j.Company, "title", j.Title, "location", j.Location, "url", j.URL}
		if j.PostingAge != "" {
			args = append(args, "posted", j.PostingAge)
		}
		n.logger.Info("new listing", args...)
	}
	return nil
}
