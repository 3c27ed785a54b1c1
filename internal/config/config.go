package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobscout/internal/model"
)

// Config is the root configuration for jobscout.
type Config struct {
	Upstream        UpstreamConfig
	RateLimit       RateLimitConfig
	Retry           RetryConfig
	Cache           CacheConfig
	Search          SearchConfig
	PollingInterval time.Duration
	StorePath       string // sqlite database of seen listings
	Watches         []WatchConfig
	Filters         FilterConfig
	Notification    NotificationConfig
}

// UpstreamConfig describes the job board endpoints.
type UpstreamConfig struct {
	SearchBase  string
	ListingBase string
	UserAgents  []string
	Timeout     time.Duration // per request attempt
}

// RateLimitConfig bounds upstream traffic to Calls requests per Period.
type RateLimitConfig struct {
	Calls  int
	Period time.Duration
}

// RetryConfig controls backoff for failed upstream requests.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    float64
}

// CacheConfig controls the adaptive in-memory caches.
type CacheConfig struct {
	BaseTTL           time.Duration
	SearchMaxAge      time.Duration
	DescriptionMaxAge time.Duration
	SweepInterval     time.Duration
}

// SearchConfig controls pagination and enrichment.
type SearchConfig struct {
	PageSize    int
	MaxResults  int
	Concurrency int
	PageDelay   time.Duration
	Describe    bool // fetch descriptions for search results
}

// WatchConfig is a saved search polled by the watch daemon.
type WatchConfig struct {
	Name       string `yaml:"name"`
	Keywords   string `yaml:"keywords"`
	Location   string `yaml:"location"`
	JobType    string `yaml:"job_type"`
	Remote     string `yaml:"remote"`
	Experience string `yaml:"experience"`
	DatePosted string `yaml:"date_posted"`
	SortBy     string `yaml:"sort_by"`
	MaxResults int    `yaml:"max_results"`
	Enabled    bool   `yaml:"enabled"`
}

// Query converts the watch into a search query. Descriptions are skipped;
// the watcher fetches them only for listings it is about to report.
func (w WatchConfig) Query() model.Query {
	return model.Query{
		Keywords:         w.Keywords,
		Location:         w.Location,
		JobType:          w.JobType,
		Remote:           w.Remote,
		Experience:       w.Experience,
		DatePosted:       w.DatePosted,
		SortBy:           w.SortBy,
		MaxResults:       w.MaxResults,
		SkipDescriptions: true,
	}
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// FilterConfig holds keyword and location filter settings.
type FilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
	Locations            []string `yaml:"locations"`
	ExcludeLocations     []string `yaml:"exclude_locations"`
}

// EnabledWatches returns the watches with enabled set.
func (c *Config) EnabledWatches() []WatchConfig {
	var out []WatchConfig
	for _, w := range c.Watches {
		if w.Enabled {
			out = append(out, w)
		}
	}
	return out
}

const (
	defaultSearchBase  = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	defaultListingBase = "https://www.linkedin.com/jobs/view"
	slackWebhookPrefix = "https://hooks.slack.com/"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			SearchBase:  defaultSearchBase,
			ListingBase: defaultListingBase,
			Timeout:     30 * time.Second,
		},
		RateLimit: RateLimitConfig{Calls: 10, Period: time.Minute},
		Retry: RetryConfig{
			Attempts:  3,
			BaseDelay: time.Second,
			MaxDelay:  30 * time.Second,
			Jitter:    0.3,
		},
		Cache: CacheConfig{
			BaseTTL:           5 * time.Minute,
			SearchMaxAge:      time.Hour,
			DescriptionMaxAge: 2 * time.Hour,
			SweepInterval:     5 * time.Minute,
		},
		Search: SearchConfig{
			PageSize:    10,
			MaxResults:  10,
			Concurrency: 5,
			PageDelay:   2 * time.Second,
			Describe:    true,
		},
		PollingInterval: 30 * time.Minute,
		StorePath:       "jobscout.db",
		Notification:    NotificationConfig{Type: "log"},
	}
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Upstream        rawUpstreamConfig  `yaml:"upstream"`
	RateLimit       rawRateLimitConfig `yaml:"rate_limit"`
	Retry           rawRetryConfig     `yaml:"retry"`
	Cache           rawCacheConfig     `yaml:"cache"`
	Search          rawSearchConfig    `yaml:"search"`
	PollingInterval string             `yaml:"polling_interval"`
	StorePath       string             `yaml:"store_path"`
	Watches         []WatchConfig      `yaml:"watches"`
	Filters         FilterConfig       `yaml:"filters"`
	Notification    NotificationConfig `yaml:"notification"`
}

type rawUpstreamConfig struct {
	SearchBase  string   `yaml:"search_base"`
	ListingBase string   `yaml:"listing_base"`
	UserAgents  []string `yaml:"user_agents"`
	Timeout     string   `yaml:"timeout"`
}

type rawRateLimitConfig struct {
	Calls  int    `yaml:"calls"`
	Period string `yaml:"period"`
}

type rawRetryConfig struct {
	Attempts  int      `yaml:"attempts"`
	BaseDelay string   `yaml:"base_delay"`
	MaxDelay  string   `yaml:"max_delay"`
	Jitter    *float64 `yaml:"jitter"`
}

type rawCacheConfig struct {
	BaseTTL           string `yaml:"base_ttl"`
	SearchMaxAge      string `yaml:"search_max_age"`
	DescriptionMaxAge string `yaml:"description_max_age"`
	SweepInterval     string `yaml:"sweep_interval"`
}

type rawSearchConfig struct {
	PageSize    int    `yaml:"page_size"`
	MaxResults  int    `yaml:"max_results"`
	Concurrency int    `yaml:"concurrency"`
	PageDelay   string `yaml:"page_delay"`
	Describe    *bool  `yaml:"describe"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. Variables from a .env file next to the config or in the
// working directory are loaded first so ${VAR} references resolve.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if err := raw.apply(cfg); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// apply overlays every field set in the file onto cfg.
func (raw *rawConfig) apply(cfg *Config) error {
	durations := []struct {
		field string
		value string
		dst   *time.Duration
	}{
		{"upstream.timeout", raw.Upstream.Timeout, &cfg.Upstream.Timeout},
		{"rate_limit.period", raw.RateLimit.Period, &cfg.RateLimit.Period},
		{"retry.base_delay", raw.Retry.BaseDelay, &cfg.Retry.BaseDelay},
		{"retry.max_delay", raw.Retry.MaxDelay, &cfg.Retry.MaxDelay},
		{"cache.base_ttl", raw.Cache.BaseTTL, &cfg.Cache.BaseTTL},
		{"cache.search_max_age", raw.Cache.SearchMaxAge, &cfg.Cache.SearchMaxAge},
		{"cache.description_max_age", raw.Cache.DescriptionMaxAge, &cfg.Cache.DescriptionMaxAge},
		{"cache.sweep_interval", raw.Cache.SweepInterval, &cfg.Cache.SweepInterval},
		{"search.page_delay", raw.Search.PageDelay, &cfg.Search.PageDelay},
		{"polling_interval", raw.PollingInterval, &cfg.PollingInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("parse %s %q: %w", d.field, d.value, err)
		}
		*d.dst = parsed
	}

	if raw.Upstream.SearchBase != "" {
		cfg.Upstream.SearchBase = raw.Upstream.SearchBase
	}
	if raw.Upstream.ListingBase != "" {
		cfg.Upstream.ListingBase = raw.Upstream.ListingBase
	}
	if len(raw.Upstream.UserAgents) > 0 {
		cfg.Upstream.UserAgents = raw.Upstream.UserAgents
	}
	if raw.RateLimit.Calls != 0 {
		cfg.RateLimit.Calls = raw.RateLimit.Calls
	}
	if raw.Retry.Attempts != 0 {
		cfg.Retry.Attempts = raw.Retry.Attempts
	}
	if raw.Retry.Jitter != nil {
		cfg.Retry.Jitter = *raw.Retry.Jitter
	}
	if raw.Search.PageSize != 0 {
		cfg.Search.PageSize = raw.Search.PageSize
	}
	if raw.Search.MaxResults != 0 {
		cfg.Search.MaxResults = raw.Search.MaxResults
	}
	if raw.Search.Concurrency != 0 {
		cfg.Search.Concurrency = raw.Search.Concurrency
	}
	if raw.Search.Describe != nil {
		cfg.Search.Describe = *raw.Search.Describe
	}
	if raw.StorePath != "" {
		cfg.StorePath = raw.StorePath
	}
	if raw.Notification.Type != "" {
		cfg.Notification = raw.Notification
	}
	cfg.Watches = raw.Watches
	cfg.Filters = raw.Filters
	return nil
}

// loadDotEnv loads .env files without overriding variables that are already
// set. Missing files are ignored.
func loadDotEnv(configPath string) error {
	paths := []string{filepath.Join(filepath.Dir(configPath), ".env")}
	if abs, err := filepath.Abs(paths[0]); err == nil {
		if cwd, err := filepath.Abs(".env"); err == nil && cwd != abs {
			paths = append(paths, ".env")
		}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func validate(cfg *Config) error {
	positive := []struct {
		field string
		value time.Duration
	}{
		{"upstream.timeout", cfg.Upstream.Timeout},
		{"rate_limit.period", cfg.RateLimit.Period},
		{"retry.base_delay", cfg.Retry.BaseDelay},
		{"retry.max_delay", cfg.Retry.MaxDelay},
		{"cache.base_ttl", cfg.Cache.BaseTTL},
		{"cache.search_max_age", cfg.Cache.SearchMaxAge},
		{"cache.description_max_age", cfg.Cache.DescriptionMaxAge},
		{"cache.sweep_interval", cfg.Cache.SweepInterval},
		{"polling_interval", cfg.PollingInterval},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", p.field, p.value)
		}
	}
	if cfg.Search.PageDelay < 0 {
		return fmt.Errorf("search.page_delay must not be negative, got %v", cfg.Search.PageDelay)
	}

	if cfg.RateLimit.Calls < 1 {
		return fmt.Errorf("rate_limit.calls must be at least 1, got %d", cfg.RateLimit.Calls)
	}
	if cfg.Retry.Attempts < 1 || cfg.Retry.Attempts > 5 {
		return fmt.Errorf("retry.attempts must be between 1 and 5, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Jitter < 0 || cfg.Retry.Jitter >= 1 {
		return fmt.Errorf("retry.jitter must be in [0, 1), got %v", cfg.Retry.Jitter)
	}
	if cfg.Search.PageSize < 1 || cfg.Search.MaxResults < 1 || cfg.Search.Concurrency < 1 {
		return fmt.Errorf("search.page_size, search.max_results and search.concurrency must be positive")
	}

	for i, w := range cfg.Watches {
		if w.Name == "" {
			return fmt.Errorf("watches[%d]: name is required", i)
		}
		if strings.TrimSpace(w.Keywords) == "" {
			return fmt.Errorf("watch %q: keywords are required", w.Name)
		}
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}
