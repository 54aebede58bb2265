package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.atende/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	API            API    `toml:"api"`
	Poll           Poll   `toml:"poll"`
}

// API holds the backend endpoint settings.
type API struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
}

// Poll holds the sync timer settings.
type Poll struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// DefaultPollInterval is used when the config does not set one.
const DefaultPollInterval = 5 * time.Second

// PollInterval returns the configured poll period.
func (c *Config) PollInterval() time.Duration {
	if c.Poll.IntervalSeconds <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// Load reads config from the given path. Returns an error if the file is
// missing or malformed.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
