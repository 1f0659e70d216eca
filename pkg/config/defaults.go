package config

// Consistency policies applied when the index and the metadata store disagree on open.
const (
	ConsistencyWarn   = "warn"
	ConsistencyStrict = "strict"
	ConsistencyRepair = "repair"
)

// Metadata store drivers.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/docs"
	}
	if cfg.Database.Consistency == "" {
		cfg.Database.Consistency = ConsistencyWarn
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "flat"
	}
	if cfg.Index.Dimensions == 0 {
		cfg.Index.Dimensions = 384
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = "l2"
	}
	if cfg.Index.SnapshotCompression == "" {
		cfg.Index.SnapshotCompression = "none"
	}
	if cfg.Metadata.Driver == "" {
		cfg.Metadata.Driver = DriverMattn
	}
	if cfg.Metadata.JournalMode == "" {
		cfg.Metadata.JournalMode = "DELETE"
	}
	if cfg.Metadata.Synchronous == "" {
		cfg.Metadata.Synchronous = "FULL"
	}
	if cfg.Metadata.CacheSize == 0 {
		cfg.Metadata.CacheSize = 1024
	}
}
