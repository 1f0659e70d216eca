package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: "/var/lib/naan/docs"
  consistency: strict
index:
  dimensions: 4
  metric: ip
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Path != "/var/lib/naan/docs" || cfg.Database.Consistency != ConsistencyStrict {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Index.Dimensions != 4 || cfg.Index.Metric != "ip" {
		t.Errorf("unexpected index config: %+v", cfg.Index)
	}
	if cfg.Index.Type != "flat" {
		t.Errorf("index type should default to flat, got %s", cfg.Index.Type)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: "./data/docs"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "data", "docs")
	if cfg.Database.Path != want {
		t.Errorf("database path = %s, want %s", cfg.Database.Path, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "database: [\n"},
		{"unknown consistency", "database:\n  consistency: lenient\n"},
		{"unknown index type", "index:\n  type: hnsw\n"},
		{"unknown metric", "index:\n  metric: cosine\n"},
		{"negative dimensions", "index:\n  dimensions: -3\n"},
		{"unknown compression", "index:\n  snapshot_compression: gzip\n"},
		{"unknown driver", "metadata:\n  driver: postgres\n"},
		{"unknown journal mode", "metadata:\n  journal_mode: FAST\n"},
		{"unknown synchronous", "metadata:\n  synchronous: SOMETIMES\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Database.Consistency != ConsistencyWarn {
		t.Errorf("default consistency: got %s", cfg.Database.Consistency)
	}
	if cfg.Index.Type != "flat" || cfg.Index.Metric != "l2" || cfg.Index.Dimensions != 384 {
		t.Errorf("default index: got %+v", cfg.Index)
	}
	if cfg.Index.SnapshotCompression != "none" {
		t.Errorf("default compression: got %s", cfg.Index.SnapshotCompression)
	}
	if cfg.Metadata.Driver != DriverMattn {
		t.Errorf("default driver: got %s", cfg.Metadata.Driver)
	}
	if cfg.Metadata.JournalMode != "DELETE" || cfg.Metadata.Synchronous != "FULL" {
		t.Errorf("default pragmas: got %+v", cfg.Metadata)
	}
	if cfg.Metadata.CacheSize != 1024 {
		t.Errorf("default cache size: got %d", cfg.Metadata.CacheSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_keepsSetValues(t *testing.T) {
	cfg := &Config{
		Index:    IndexConfig{Type: "faiss", Dimensions: 8},
		Metadata: MetadataConfig{Driver: DriverModernc, JournalMode: "WAL"},
	}
	ApplyDefaults(cfg)
	if cfg.Index.Type != "faiss" || cfg.Index.Dimensions != 8 {
		t.Errorf("index overwritten: %+v", cfg.Index)
	}
	if cfg.Metadata.Driver != DriverModernc || cfg.Metadata.JournalMode != "WAL" {
		t.Errorf("metadata overwritten: %+v", cfg.Metadata)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Database: DatabaseConfig{Path: "/tmp/naan", Consistency: ConsistencyRepair},
		Index:    IndexConfig{Dimensions: 16, SnapshotCompression: "zstd"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Index.Dimensions != 16 || loaded.Index.SnapshotCompression != "zstd" {
		t.Errorf("loaded index: got %+v", loaded.Index)
	}
	if loaded.Database.Consistency != ConsistencyRepair {
		t.Errorf("loaded consistency: got %s", loaded.Database.Consistency)
	}
}
