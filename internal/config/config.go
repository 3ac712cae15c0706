package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied when the corresponding field is absent from the file.
const (
	DefaultBaseURL        = "http://localhost:7000/api"
	DefaultSearchDebounce = 300 * time.Millisecond
	DefaultPageSize       = 50
)

// Config represents the global ~/.gaprio/config.toml.
type Config struct {
	BaseURL          string `toml:"base_url"`
	DefaultProfile   string `toml:"default_profile"`
	SearchDebounceMS int    `toml:"search_debounce_ms"`
	MessagePageSize  int    `toml:"message_page_size"`
}

// Load reads config from the given path. Returns an error if the file is
// missing; callers fall back to Default() in that case.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.fill()
	return &cfg, nil
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.fill()
	return cfg
}

func (c *Config) fill() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.SearchDebounceMS <= 0 {
		c.SearchDebounceMS = int(DefaultSearchDebounce / time.Millisecond)
	}
	if c.MessagePageSize <= 0 {
		c.MessagePageSize = DefaultPageSize
	}
}

// SearchDebounce returns the debounce window as a duration.
func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMS) * time.Millisecond
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
