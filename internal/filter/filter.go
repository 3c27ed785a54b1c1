package filter

import (
	"strings"

	"github.com/amishk599/jobscout/internal/config"
	"github.com/amishk599/jobscout/internal/model"
)

// TitleAndLocationFilter matches jobs whose title contains any of the title
// keywords and whose location contains any of the location keywords, unless
// the title or location hits an exclude keyword. Matching is case-insensitive.
// Empty include lists are treated as "match all".
type TitleAndLocationFilter struct {
	titleKeywords    []string
	titleExcludes    []string
	locations        []string
	locationExcludes []string
}

// NewTitleAndLocationFilter returns a filter that requires both a title keyword
// match and a location keyword match (case-insensitive substring).
func NewTitleAndLocationFilter(titleKeywords []string, locations []string) *TitleAndLocationFilter {
	return &TitleAndLocationFilter{
		titleKeywords: lower(titleKeywords),
		locations:     lower(locations),
	}
}

// FromConfig builds a filter from the filters section of the config file.
func FromConfig(cfg config.FilterConfig) *TitleAndLocationFilter {
	f := NewTitleAndLocationFilter(cfg.TitleKeywords, cfg.Locations)
	f.titleExcludes = lower(cfg.TitleExcludeKeywords)
	f.locationExcludes = lower(cfg.ExcludeLocations)
	return f
}

// Match returns true if the job's title contains any title keyword and the
// job's location contains any location keyword, and neither contains an
// exclude keyword. Empty include lists pass all.
func (f *TitleAndLocationFilter) Match(job model.Job) bool {
	titleLower := strings.ToLower(job.Title)
	locationLower := strings.ToLower(job.Location)

	if containsAny(titleLower, f.titleExcludes) || containsAny(locationLower, f.locationExcludes) {
		return false
	}
	if len(f.titleKeywords) > 0 && !containsAny(titleLower, f.titleKeywords) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(locationLower, f.locations) {
		return false
	}
	return true
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var _ model.JobFilter = (*TitleAndLocationFilter)(nil)
