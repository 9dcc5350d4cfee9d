package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Sources    SourcesConfig    `yaml:"sources"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Digest     DigestConfig     `yaml:"digest"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures when ingestion cycles run.
type ScheduleConfig struct {
	// Cron is a robfig/cron spec, e.g. "@every 30m" or "*/15 * * * *".
	Cron       string `yaml:"cron"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// FetchConfig configures the shared HTTP fetcher used by source adapters.
type FetchConfig struct {
	UserAgent         string  `yaml:"user_agent"`
	Timeout           string  `yaml:"timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxRetries        int     `yaml:"max_retries"`
}

// ParseTimeout returns the timeout as time.Duration.
func (f FetchConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// SourcesConfig holds configuration for all data sources.
type SourcesConfig struct {
	Reddit   RedditConfig   `yaml:"reddit"`
	Telegram TelegramConfig `yaml:"telegram"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Twitter  TwitterConfig  `yaml:"twitter"`
	RSS      RSSConfig      `yaml:"rss"`
}

// RedditConfig for the Reddit search collector.
type RedditConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Keywords   []string `yaml:"keywords"`
	Subreddits []string `yaml:"subreddits"`
	Limit      int      `yaml:"limit"`
}

// TelegramConfig for public channel scraping.
type TelegramConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Channels []string `yaml:"channels"`
	Limit    int      `yaml:"limit"`
	// Keywords filters messages; empty keeps every message.
	Keywords []string `yaml:"keywords"`
}

// YouTubeConfig for the video comment streamer.
type YouTubeConfig struct {
	Enabled          bool   `yaml:"enabled"`
	APIKey           string `yaml:"api_key"`
	Query            string `yaml:"query"`
	MaxVideos        int    `yaml:"max_videos"`
	CommentsPerVideo int    `yaml:"comments_per_video"`
}

// TwitterConfig for Twitter/X via Nitter RSS.
type TwitterConfig struct {
	Enabled   bool     `yaml:"enabled"`
	NitterURL string   `yaml:"nitter_url"`
	Accounts  []string `yaml:"accounts"`
	Keywords  []string `yaml:"keywords"`
}

// RSSConfig for RSS/Atom feeds, including RSSHub bridges.
type RSSConfig struct {
	Enabled  bool       `yaml:"enabled"`
	Feeds    []FeedItem `yaml:"feeds"`
	Keywords []string   `yaml:"keywords"`
}

// FeedItem is a single RSS feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// VocabularyConfig overrides the tagging vocabularies. Empty lists keep the
// built-in ones.
type VocabularyConfig struct {
	Hazards   []string `yaml:"hazards"`
	Locations []string `yaml:"locations"`
}

// DigestConfig bounds digest generation.
type DigestConfig struct {
	MaxPosts     int `yaml:"max_posts"`
	PerPostChars int `yaml:"per_post_chars"`
	ChunkSize    int `yaml:"chunk_size"`
	MinLength    int `yaml:"min_length"`
	MaxLength    int `yaml:"max_length"`
}

// SummarizerConfig selects the summarization backend.
type SummarizerConfig struct {
	Provider string `yaml:"provider"` // "extractive", "openai" or "anthropic"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"` // custom endpoint (optional)
}

// AlertsConfig configures digest notification destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./hazardradar.db"},
		Schedule: ScheduleConfig{Cron: "@every 30m"},
		Fetch: FetchConfig{
			Timeout:           "15s",
			RequestsPerSecond: 1,
			Burst:             2,
			MaxRetries:        3,
		},
		Sources: SourcesConfig{
			Reddit: RedditConfig{
				Enabled: true,
				Keywords: []string{
					"cyclone", "coastal flooding", "seawater intrusion", "flood alert",
					"tsunami warning", "earthquake tremor sea", "aftershock sea level", "ocean waves warning",
				},
				Subreddits: []string{"bangalore", "mumbai", "chennai", "kolkata", "Odisha", "India"},
				Limit:      25,
			},
			Telegram: TelegramConfig{
				Enabled:  true,
				Channels: []string{"ChennaiRains"},
				Limit:    20,
				Keywords: []string{
					"flood", "cyclone", "storm", "rain", "landslide",
					"earthquake", "dam", "relief", "rescue", "disaster",
					"shelter", "alert", "tsunami",
				},
			},
			YouTube: YouTubeConfig{
				Enabled:          false,
				Query:            "Tsunami India",
				MaxVideos:        2,
				CommentsPerVideo: 5,
			},
			Twitter: TwitterConfig{
				Enabled:   false,
				NitterURL: "https://nitter.net",
			},
			RSS: RSSConfig{Enabled: false},
		},
		Digest: DigestConfig{
			MaxPosts:     30,
			PerPostChars: 200,
			ChunkSize:    1000,
			MinLength:    25,
			MaxLength:    80,
		},
		Summarizer: SummarizerConfig{Provider: "extractive"},
		Alerts:     AlertsConfig{},
		Server:     ServerConfig{Port: 8080},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.Summarizer.Provider = strings.ToLower(strings.TrimSpace(cfg.Summarizer.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HAZARDRADAR_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HAZARDRADAR_SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.Sources.YouTube.APIKey = v
		cfg.Sources.YouTube.Enabled = true
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Summarizer.APIKey = v
		cfg.Summarizer.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Summarizer.APIKey = v
		cfg.Summarizer.Provider = "anthropic"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		errs = append(errs, fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err))
	}
	if c.Fetch.Timeout != "" {
		if _, err := time.ParseDuration(c.Fetch.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("fetch.timeout %q: %w", c.Fetch.Timeout, err))
		}
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, errors.New("fetch.max_retries must not be negative"))
	}

	if c.Sources.Reddit.Enabled && len(c.Sources.Reddit.Keywords) == 0 {
		errs = append(errs, errors.New("sources.reddit.keywords is required when reddit is enabled"))
	}
	if c.Sources.Telegram.Enabled && len(c.Sources.Telegram.Channels) == 0 {
		errs = append(errs, errors.New("sources.telegram.channels is required when telegram is enabled"))
	}
	if c.Sources.YouTube.Enabled && c.Sources.YouTube.APIKey == "" {
		errs = append(errs, errors.New("sources.youtube.api_key is required when youtube is enabled (set YOUTUBE_API_KEY)"))
	}
	for _, f := range c.Sources.RSS.Feeds {
		if f.URL == "" {
			errs = append(errs, fmt.Errorf("sources.rss feed %q has no url", f.Name))
		}
	}

	d := c.Digest
	if d.MaxPosts < 0 || d.PerPostChars < 0 || d.ChunkSize < 0 || d.MinLength < 0 || d.MaxLength < 0 {
		errs = append(errs, errors.New("digest limits must not be negative"))
	}
	if d.MaxLength > 0 && d.MinLength > d.MaxLength {
		errs = append(errs, fmt.Errorf("digest.min_length %d exceeds digest.max_length %d", d.MinLength, d.MaxLength))
	}

	for _, h := range c.Vocabulary.Hazards {
		if strings.TrimSpace(h) == "" {
			errs = append(errs, errors.New("vocabulary.hazards must not contain blank entries"))
			break
		}
	}
	for _, l := range c.Vocabulary.Locations {
		if strings.TrimSpace(l) == "" {
			errs = append(errs, errors.New("vocabulary.locations must not contain blank entries"))
			break
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Summarizer.Provider)) {
	case "", "extractive", "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("summarizer.provider %q is not supported", c.Summarizer.Provider))
	}

	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		errs = append(errs, errors.New("alerts.webhook.url is required when the webhook is enabled"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}
