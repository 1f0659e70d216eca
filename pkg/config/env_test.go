package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvDatabasePath, "/srv/naan")
	t.Setenv(EnvIndexType, "faiss")
	t.Setenv(EnvIndexDims, "768")
	t.Setenv(EnvMetadataDriver, DriverModernc)
	t.Setenv(EnvConsistency, ConsistencyRepair)

	cfg := &Config{}
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug || cfg.LogLevel != "warn" {
		t.Errorf("logging: got debug=%v level=%q", cfg.Debug, cfg.LogLevel)
	}
	if cfg.Database.Path != "/srv/naan" || cfg.Database.Consistency != ConsistencyRepair {
		t.Errorf("database: got %+v", cfg.Database)
	}
	if cfg.Index.Type != "faiss" || cfg.Index.Dimensions != 768 {
		t.Errorf("index: got %+v", cfg.Index)
	}
	if cfg.Metadata.Driver != DriverModernc {
		t.Errorf("driver: got %s", cfg.Metadata.Driver)
	}
}

func TestApplyEnv_invalidValues(t *testing.T) {
	t.Run("debug", func(t *testing.T) {
		t.Setenv(EnvDebug, "maybe")
		if err := ApplyEnv(&Config{}); err == nil {
			t.Error("expected error for non-boolean debug")
		}
	})
	t.Run("dimensions", func(t *testing.T) {
		t.Setenv(EnvIndexDims, "many")
		if err := ApplyEnv(&Config{}); err == nil {
			t.Error("expected error for non-integer dimensions")
		}
	})
}

func TestLoad_envOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("index:\n  dimensions: 4\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvIndexDims, "12")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Index.Dimensions != 12 {
		t.Errorf("dimensions = %d, want 12 from environment", cfg.Index.Dimensions)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("NAAN_CONSISTENCY=strict\n"), 0600); err != nil {
		t.Fatal(err)
	}
	// Registers cleanup of the variable LoadDotEnv is about to set.
	t.Setenv(EnvConsistency, "")
	os.Unsetenv(EnvConsistency)

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(EnvConsistency); got != ConsistencyStrict {
		t.Errorf("%s = %q, want strict", EnvConsistency, got)
	}
}

func TestLoadDotEnv_keepsExisting(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("NAAN_INDEX_TYPE=faiss\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvIndexType, "flat")
	if err := LoadDotEnv(envFile); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(EnvIndexType); got != "flat" {
		t.Errorf("%s = %q, existing value should win", EnvIndexType, got)
	}
}
