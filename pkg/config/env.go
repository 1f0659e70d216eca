package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override values from the config file.
const (
	EnvDebug          = "NAAN_DEBUG"
	EnvLogLevel       = "NAAN_LOG_LEVEL"
	EnvDatabasePath   = "NAAN_DATABASE_PATH"
	EnvIndexType      = "NAAN_INDEX_TYPE"
	EnvIndexDims      = "NAAN_INDEX_DIMENSIONS"
	EnvMetadataDriver = "NAAN_METADATA_DRIVER"
	EnvConsistency    = "NAAN_CONSISTENCY"
)

// LoadDotEnv loads variables from the given .env files (".env" when none are given) into the
// process environment. Missing files are skipped and variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with any NAAN_* variables set in the environment.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvDebug); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		cfg.Debug = b
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvDatabasePath); ok && v != "" {
		cfg.Database.Path = v
	}
	if v, ok := os.LookupEnv(EnvIndexType); ok && v != "" {
		cfg.Index.Type = v
	}
	if v, ok := os.LookupEnv(EnvIndexDims); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvIndexDims, err)
		}
		cfg.Index.Dimensions = n
	}
	if v, ok := os.LookupEnv(EnvMetadataDriver); ok && v != "" {
		cfg.Metadata.Driver = v
	}
	if v, ok := os.LookupEnv(EnvConsistency); ok && v != "" {
		cfg.Database.Consistency = v
	}
	return nil
}
