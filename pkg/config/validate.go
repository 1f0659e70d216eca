package config

import (
	"fmt"
	"strings"

	"github.com/hyperjump/naan/pkg/vector"
)

var (
	journalModes = []string{"DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF"}
	syncModes    = []string{"OFF", "NORMAL", "FULL", "EXTRA"}
)

// Validate rejects unknown enum values and non-positive sizes.
func (c *Config) Validate() error {
	switch c.Database.Consistency {
	case ConsistencyWarn, ConsistencyStrict, ConsistencyRepair:
	default:
		return fmt.Errorf("invalid database.consistency %q (supported: warn, strict, repair)", c.Database.Consistency)
	}
	switch vector.IndexType(c.Index.Type) {
	case vector.IndexTypeFlat, vector.IndexTypeMemory, vector.IndexTypeFAISS:
	default:
		return fmt.Errorf("invalid index.type %q (supported: flat, faiss)", c.Index.Type)
	}
	if c.Index.Dimensions <= 0 {
		return fmt.Errorf("index.dimensions must be positive, got %d", c.Index.Dimensions)
	}
	if _, err := vector.ParseMetric(c.Index.Metric); err != nil {
		return fmt.Errorf("invalid index.metric: %w", err)
	}
	if _, err := vector.ParseCompression(c.Index.SnapshotCompression); err != nil {
		return fmt.Errorf("invalid index.snapshot_compression: %w", err)
	}
	switch c.Metadata.Driver {
	case DriverMattn, DriverModernc:
	default:
		return fmt.Errorf("invalid metadata.driver %q (supported: sqlite3, sqlite)", c.Metadata.Driver)
	}
	if !oneOf(c.Metadata.JournalMode, journalModes) {
		return fmt.Errorf("invalid metadata.journal_mode %q", c.Metadata.JournalMode)
	}
	if !oneOf(c.Metadata.Synchronous, syncModes) {
		return fmt.Errorf("invalid metadata.synchronous %q", c.Metadata.Synchronous)
	}
	if c.Metadata.CacheSize < 0 {
		return fmt.Errorf("metadata.cache_size must not be negative, got %d", c.Metadata.CacheSize)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
