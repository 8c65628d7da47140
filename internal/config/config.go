package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Provider  ProviderConfig  `yaml:"provider"`
	Sync      SyncConfig      `yaml:"sync"`
	Reminders RemindersConfig `yaml:"reminders"`
	Server    ServerConfig    `yaml:"server"`
}

// DatabaseConfig configures the SQLite cache file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ProviderConfig selects the agenda source. The switch is resolved once at
// startup; business logic never inspects it again.
type ProviderConfig struct {
	// Kind is "static", "remote" or "feed".
	Kind   string       `yaml:"kind"`
	Remote RemoteConfig `yaml:"remote"`
	Feed   FeedConfig   `yaml:"feed"`
}

// RemoteConfig configures the remote agenda API provider.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
}

// FeedConfig configures the schedule-feed provider.
type FeedConfig struct {
	URL string `yaml:"url"`
}

// SyncConfig configures revalidation behavior.
type SyncConfig struct {
	// Interval between scheduled background revalidations.
	Interval string `yaml:"interval"`
	// MaxAge is the freshness threshold: reads over a cache older than
	// this trigger a revalidation.
	MaxAge string `yaml:"max_age"`
}

// ParseInterval returns the sync interval as a time.Duration.
func (s SyncConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return time.Hour
	}
	return d
}

// ParseMaxAge returns the freshness threshold as a time.Duration.
func (s SyncConfig) ParseMaxAge() time.Duration {
	d, err := time.ParseDuration(s.MaxAge)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// RemindersConfig configures reminder delivery.
type RemindersConfig struct {
	CheckInterval string        `yaml:"check_interval"`
	Slack         SlackConfig   `yaml:"slack"`
	Discord       DiscordConfig `yaml:"discord"`
	Webhook       WebhookConfig `yaml:"webhook"`
}

// ParseCheckInterval returns the due-reminder sweep interval.
func (r RemindersConfig) ParseCheckInterval() time.Duration {
	d, err := time.ParseDuration(r.CheckInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// SlackConfig for Slack webhook reminders.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook reminders.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook reminders.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP read API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults: bundled dataset,
// local cache file, daily freshness threshold.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./agendacache.db"},
		Provider: ProviderConfig{Kind: "static"},
		Sync: SyncConfig{
			Interval: "1h",
			MaxAge:   "24h",
		},
		Reminders: RemindersConfig{
			CheckInterval: "1m",
		},
		Server: ServerConfig{Port: 8080},
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

	switch cfg.Provider.Kind {
	case "static", "remote", "feed":
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}

	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
// This is the only place the process environment is consulted.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENDACACHE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("AGENDACACHE_PROVIDER"); v != "" {
		cfg.Provider.Kind = v
	}
	if v := os.Getenv("AGENDACACHE_REMOTE_URL"); v != "" {
		cfg.Provider.Remote.BaseURL = v
	}
	if v := os.Getenv("AGENDACACHE_FEED_URL"); v != "" {
		cfg.Provider.Feed.URL = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Reminders.Slack.WebhookURL = v
		cfg.Reminders.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Reminders.Discord.WebhookURL = v
		cfg.Reminders.Discord.Enabled = true
	}
}
