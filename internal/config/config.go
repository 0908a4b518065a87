// Package config loads the application configuration from a YAML file. The
// catalog is local-first: a missing config file is not an error, defaults
// put everything under the user's data directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all datahub settings.
type Config struct {
	// CatalogDir is the directory of canonical dataset cards.
	CatalogDir string `yaml:"catalog_dir"`
	// IndexPath is the SQLite database holding both index projections.
	IndexPath string `yaml:"index_path"`
	Search    SearchConfig  `yaml:"search"`
	Logging   LoggingConfig `yaml:"logging"`
}

// SearchConfig holds interactive search settings.
type SearchConfig struct {
	// DebounceMS is the keystroke quiet window in milliseconds.
	DebounceMS int `yaml:"debounce_ms"`
	// Limit caps the number of results per search.
	Limit int `yaml:"limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Env   string `yaml:"env"`   // local (console) or prod (JSON)
}

// DefaultPath returns the config location: $DATAHUB_CONFIG if set, otherwise
// datahub.yaml under the user config directory.
func DefaultPath() string {
	if p := os.Getenv("DATAHUB_CONFIG"); p != "" {
		return p
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "datahub.yaml"
	}
	return filepath.Join(base, "datahub", "datahub.yaml")
}

// Load reads the config at path. A missing file yields pure defaults.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if c.CatalogDir == "" {
		c.CatalogDir = filepath.Join(home, ".datahub", "catalog")
	}
	if c.IndexPath == "" {
		c.IndexPath = filepath.Join(home, ".datahub", "index.db")
	}
	if c.Search.DebounceMS <= 0 {
		c.Search.DebounceMS = 300
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = 50
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Search.Limit > 1000 {
		return fmt.Errorf("search.limit %d is too large (max 1000)", c.Search.Limit)
	}
	switch c.Logging.Env {
	case "local", "prod":
	default:
		return fmt.Errorf("logging.env must be local or prod, got %q", c.Logging.Env)
	}
	return nil
}
