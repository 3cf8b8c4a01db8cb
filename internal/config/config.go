// Package config handles TOML configuration loading with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration for threatmon.
type Config struct {
	Feed    FeedConfig    `toml:"feed"`
	Poll    PollConfig    `toml:"poll"`
	Alerts  AlertsConfig  `toml:"alerts"`
	Archive ArchiveConfig `toml:"archive"`
	HTTP    HTTPConfig    `toml:"http"`
	Log     LogConfig     `toml:"log"`
}

// FeedConfig identifies the upstream content feed.
type FeedConfig struct {
	BaseURL   string `toml:"base_url"`
	Subreddit string `toml:"subreddit"`
	UserAgent string `toml:"user_agent"`
}

// PollConfig controls polling cadence and fetch sizes.
type PollConfig struct {
	Interval Duration `toml:"interval"`
	Backoff  Duration `toml:"backoff"`
	// FetchLimit is the per-cycle fetch size for the background poller.
	FetchLimit int `toml:"fetch_limit"`
	// OneShotLimit is the fetch size for on-demand queries.
	OneShotLimit int `toml:"oneshot_limit"`
	// DedupMaxEntries bounds the seen-post set. 0 means unbounded, which
	// matches the historical behavior but grows for the process lifetime.
	DedupMaxEntries int `toml:"dedup_max_entries"`
}

// AlertsConfig controls alert persistence.
type AlertsConfig struct {
	// DataDir holds alerts.json and the post archive. Empty means the
	// XDG data directory.
	DataDir string `toml:"data_dir"`
}

// ArchiveConfig controls the classified-post archive.
type ArchiveConfig struct {
	Enabled   bool     `toml:"enabled"`
	Retention Duration `toml:"retention"`
}

// HTTPConfig controls the query API listener.
type HTTPConfig struct {
	Listen string `toml:"listen"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps time.Duration for TOML string parsing (e.g. "60s", "1h").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Feed: FeedConfig{
			BaseURL:   "https://www.reddit.com",
			Subreddit: "cybersecurity",
			UserAgent: "threatmon/1.0",
		},
		Poll: PollConfig{
			Interval:     Duration{60 * time.Second},
			Backoff:      Duration{60 * time.Second},
			FetchLimit:   20,
			OneShotLimit: 1500,
		},
		Archive: ArchiveConfig{
			Enabled:   true,
			Retention: Duration{30 * 24 * time.Hour},
		},
		HTTP: HTTPConfig{
			Listen: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "threatmon", "config.toml")
}

// Load reads configuration from the given path, falling back to defaults
// for any unset fields. If the file does not exist, returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// dataDir resolves the data directory, creating it if needed.
func (c *Config) dataDir() string {
	if c.Alerts.DataDir != "" {
		return c.Alerts.DataDir
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "threatmon")
}

// AlertsPath returns the path of the persisted alert document.
func (c *Config) AlertsPath() string {
	return filepath.Join(c.dataDir(), "alerts.json")
}

// ArchivePath returns the path of the post archive database.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.dataDir(), "posts.db")
}
