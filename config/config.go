// Package config loads the bot session configuration from built-in defaults,
// an optional config.json, environment variables, and CLI flag bindings.
// Missing keys are filled from defaults so the binary can run with a minimal
// file. For required identifiers (stream, assistant), use Validate.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Default tuning values for a typical live session.
const (
	DefaultPollInterval    = 10 * time.Second
	DefaultEconomyInterval = 20 * time.Second
	DefaultDailyQuota      = 10000
	DefaultQuotaReserve    = 1000
	DefaultDedupCapacity   = 500
)

type Config struct {
	// Identity
	BotName        string
	BotChannelName string

	// Stream / assistant targets
	VideoID     string
	AssistantID string

	// Cadence and quota budget
	PollInterval    time.Duration
	EconomyMode     bool
	EconomyInterval time.Duration
	DailyQuota      int
	QuotaReserve    int

	// Bounded memory of processed message ids
	DedupCapacity int

	// Persistence
	QuotaFile string

	// HTTP surface
	HTTPAddr string

	v    *viper.Viper
	path string
}

// Load reads the config file at path (created on first Save if absent),
// merging it over defaults. Environment variables prefixed with YTBOT_
// override file values (e.g. YTBOT_VIDEO_ID).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("YTBOT")
	v.AutomaticEnv()

	v.SetDefault("bot_name", "Janete")
	v.SetDefault("video_id", "")
	v.SetDefault("assistant_id", "")
	v.SetDefault("bot_channel_name", "")
	v.SetDefault("poll_interval_seconds", int(DefaultPollInterval/time.Second))
	v.SetDefault("economy_mode", false)
	v.SetDefault("economy_interval_seconds", int(DefaultEconomyInterval/time.Second))
	v.SetDefault("daily_quota", DefaultDailyQuota)
	v.SetDefault("quota_reserve", DefaultQuotaReserve)
	v.SetDefault("dedup_capacity", DefaultDedupCapacity)
	v.SetDefault("quota_file", "quota_usage.json")
	v.SetDefault("http_addr", ":8080")

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// No file yet: run on defaults + env.
	}

	cfg := &Config{
		BotName:         v.GetString("bot_name"),
		BotChannelName:  v.GetString("bot_channel_name"),
		VideoID:         v.GetString("video_id"),
		AssistantID:     v.GetString("assistant_id"),
		PollInterval:    time.Duration(v.GetInt("poll_interval_seconds")) * time.Second,
		EconomyMode:     v.GetBool("economy_mode"),
		EconomyInterval: time.Duration(v.GetInt("economy_interval_seconds")) * time.Second,
		DailyQuota:      v.GetInt("daily_quota"),
		QuotaReserve:    v.GetInt("quota_reserve"),
		DedupCapacity:   v.GetInt("dedup_capacity"),
		QuotaFile:       v.GetString("quota_file"),
		HTTPAddr:        v.GetString("http_addr"),
		v:               v,
		path:            path,
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.EconomyInterval <= 0 {
		cfg.EconomyInterval = DefaultEconomyInterval
	}
	if cfg.DedupCapacity <= 0 {
		cfg.DedupCapacity = DefaultDedupCapacity
	}
	return cfg, nil
}

// Validate checks the fields the dispatch loop cannot run without.
func (c *Config) Validate() error {
	if c.VideoID == "" {
		return fmt.Errorf("missing video id: set video_id in %s or pass --video", c.path)
	}
	if c.AssistantID == "" {
		return fmt.Errorf("missing assistant id: set assistant_id in %s", c.path)
	}
	return nil
}

// SetVideoID overrides the target stream (CLI flag path).
func (c *Config) SetVideoID(id string) {
	c.VideoID = id
	c.v.Set("video_id", id)
}

// SetPollInterval overrides the normal polling cadence (CLI flag path).
func (c *Config) SetPollInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	c.PollInterval = d
	c.v.Set("poll_interval_seconds", int(d/time.Second))
}

// SetEconomyMode flips economy mode in memory; callers persist with Save.
func (c *Config) SetEconomyMode(on bool) {
	c.EconomyMode = on
	c.v.Set("economy_mode", on)
}

// Save writes the current configuration back to the config file so every
// recognized key exists on disk, including an economy flag flipped mid-run.
func (c *Config) Save() error {
	if err := c.v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("write config %s: %w", c.path, err)
	}
	return nil
}

// Path returns the backing config file path.
func (c *Config) Path() string { return c.path }
