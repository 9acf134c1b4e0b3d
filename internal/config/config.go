// Package config loads the dashboard configuration file. File fields are
// pointers so a partial JSON file only overrides what it names; Load fills
// the rest with defaults and validates the result.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/skylark-data/flightdeck/internal/series"
	"github.com/skylark-data/flightdeck/internal/units"
)

// MaxConfigFileSize caps config reads so a mistaken path (e.g. a log file)
// cannot be slurped into memory.
const MaxConfigFileSize = 1 << 20

// FileConfig mirrors the JSON config file. Fields omitted from the file keep
// their defaults, so partial configs are safe.
type FileConfig struct {
	Listen        *string `json:"listen,omitempty"`
	LogDir        *string `json:"log_dir,omitempty"`
	DBPath        *string `json:"db_path,omitempty"`
	MigrationsDir *string `json:"migrations_dir,omitempty"`
	MaxPoints     *int    `json:"max_points,omitempty"`
	CacheSize     *int    `json:"cache_size,omitempty"`
	Units         *string `json:"units,omitempty"`
	Verbose       *bool   `json:"verbose,omitempty"`
}

// Config is the resolved runtime configuration.
type Config struct {
	Listen        string
	LogDir        string
	DBPath        string
	MigrationsDir string
	MaxPoints     int
	CacheSize     int
	Units         string
	Verbose       bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:        ":8080",
		LogDir:        "uploaded_logs",
		DBPath:        "flightdeck.db",
		MigrationsDir: "migrations",
		MaxPoints:     series.DefaultMaxPoints,
		CacheSize:     4,
		Units:         units.KMPH,
	}
}

// Load reads the JSON config file at path. A missing path ("" argument)
// yields the defaults. The result is validated; an invalid max_points or
// unit is rejected here rather than corrupting plots later.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	st, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("config file: %w", err)
	}
	if st.Size() > MaxConfigFileSize {
		return Config{}, fmt.Errorf("config file %s too large (%d bytes)", cleanPath, st.Size())
	}

	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("config file: %w", err)
	}
	var fc FileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", cleanPath, err)
	}

	cfg.apply(&fc)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", cleanPath, err)
	}
	return cfg, nil
}

func (c *Config) apply(fc *FileConfig) {
	if fc.Listen != nil {
		c.Listen = *fc.Listen
	}
	if fc.LogDir != nil {
		c.LogDir = *fc.LogDir
	}
	if fc.DBPath != nil {
		c.DBPath = *fc.DBPath
	}
	if fc.MigrationsDir != nil {
		c.MigrationsDir = *fc.MigrationsDir
	}
	if fc.MaxPoints != nil {
		c.MaxPoints = *fc.MaxPoints
	}
	if fc.CacheSize != nil {
		c.CacheSize = *fc.CacheSize
	}
	if fc.Units != nil {
		c.Units = *fc.Units
	}
	if fc.Verbose != nil {
		c.Verbose = *fc.Verbose
	}
}

// Validate rejects configurations that would corrupt output silently.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.MaxPoints < series.MinPoints {
		return fmt.Errorf("max_points %d below minimum %d", c.MaxPoints, series.MinPoints)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache_size must be at least 1, got %d", c.CacheSize)
	}
	if !units.IsValid(c.Units) {
		return fmt.Errorf("invalid units %q, valid: %s", c.Units, units.GetValidUnitsString())
	}
	return nil
}
