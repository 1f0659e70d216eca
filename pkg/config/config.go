// Package config provides configuration loading and structs for a naan database.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for opening a database.
type Config struct {
	Debug    bool           `yaml:"debug"`
	// LogLevel, when set, overrides Debug with a production logger at that level.
	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
	Index    IndexConfig    `yaml:"index"`
	Metadata MetadataConfig `yaml:"metadata"`
}

// DatabaseConfig holds the storage folder location and open behaviour.
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	ForceRecreate bool   `yaml:"force_recreate"`
	// Consistency is one of warn, strict, repair.
	Consistency string `yaml:"consistency"`
}

// IndexConfig describes the vector index built when the storage folder is new.
type IndexConfig struct {
	Type                string `yaml:"type"`
	Dimensions          int    `yaml:"dimensions"`
	Metric              string `yaml:"metric"`
	Normalize           bool   `yaml:"normalize"`
	SnapshotCompression string `yaml:"snapshot_compression"`
}

// MetadataConfig holds SQLite settings for the metadata store.
type MetadataConfig struct {
	Driver      string `yaml:"driver"`
	JournalMode string `yaml:"journal_mode"`
	Synchronous string `yaml:"synchronous"`
	CacheSize   int    `yaml:"cache_size"`
}

// Load reads and parses the config file at path, applies environment overrides and
// defaults, expands paths, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Database.Path = expandPath(cfg.Database.Path, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
