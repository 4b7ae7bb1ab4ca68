package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Joseda-hg/lazygantt/internal/depgraph"
	"github.com/Joseda-hg/lazygantt/internal/gantt"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

type Config struct {
	DBPath           string  `json:"db_path"`
	WebEnabled       bool    `json:"web_enabled"`
	WebPort          int     `json:"web_port"`
	DefaultView      string  `json:"default_view"`
	ContainerWidth   float64 `json:"container_width"`
	PredecessorScope string  `json:"predecessor_scope"`
	StrictCycles     bool    `json:"strict_cycles"`
	RateLimit        float64 `json:"rate_limit"`
	RateBurst        int     `json:"rate_burst"`
	ChartCacheSize   int     `json:"chart_cache_size"`
}

func Default() Config {
	return Config{
		WebPort:          8080,
		DefaultView:      string(timeline.ViewMonth),
		ContainerWidth:   1200,
		PredecessorScope: string(depgraph.ScopeHierarchy),
		RateLimit:        10,
		RateBurst:        20,
		ChartCacheSize:   gantt.DefaultCacheSize,
	}
}

// Validate fills zero values with defaults and rejects unknown enums.
func (c *Config) Validate() error {
	defaults := Default()
	if c.WebPort <= 0 {
		c.WebPort = defaults.WebPort
	}
	if c.DefaultView == "" {
		c.DefaultView = defaults.DefaultView
	}
	if _, err := timeline.ParseViewType(c.DefaultView); err != nil {
		return fmt.Errorf("default_view: %w", err)
	}
	if c.PredecessorScope == "" {
		c.PredecessorScope = defaults.PredecessorScope
	}
	if _, err := depgraph.ParseScope(c.PredecessorScope); err != nil {
		return fmt.Errorf("predecessor_scope: %w", err)
	}
	if c.ContainerWidth < 0 {
		return fmt.Errorf("container_width cannot be negative")
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaults.RateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = defaults.RateBurst
	}
	if c.ChartCacheSize <= 0 {
		c.ChartCacheSize = defaults.ChartCacheSize
	}
	return nil
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazygantt", "config.json"), nil
}

func DefaultDBPath() (string, error) {
	dataDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "lazygantt", "lazygantt.db"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
