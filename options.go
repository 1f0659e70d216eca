package naan

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/naan/internal/storage"
	"github.com/hyperjump/naan/pkg/filter"
	"github.com/hyperjump/naan/pkg/models"
	"github.com/hyperjump/naan/pkg/utils"
	"github.com/hyperjump/naan/pkg/vector"
)

// Consistency selects what Open does when the index and the metadata store disagree.
type Consistency string

const (
	// ConsistencyWarn opens anyway, logs a warning and skips orphaned ordinals in searches.
	ConsistencyWarn Consistency = "warn"
	// ConsistencyStrict fails Open with an *InconsistencyError.
	ConsistencyStrict Consistency = "strict"
	// ConsistencyRepair truncates the index back to the metadata rows when the divergence is
	// an interrupted add at the tail, and fails like ConsistencyStrict otherwise.
	ConsistencyRepair Consistency = "repair"
)

// ParseConsistency returns the policy named s; empty selects ConsistencyWarn.
func ParseConsistency(s string) (Consistency, error) {
	switch c := Consistency(s); c {
	case "":
		return ConsistencyWarn, nil
	case ConsistencyWarn, ConsistencyStrict, ConsistencyRepair:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown consistency policy %q (supported: warn, strict, repair)", ErrConfiguration, s)
}

type options struct {
	force       bool
	logger      *zap.Logger
	consistency Consistency
	store       storage.Options
	cacheSize   int
	compression vector.Compression
	normalize   bool
}

func defaultOptions() options {
	return options{
		logger:      zap.NewNop(),
		consistency: ConsistencyWarn,
		cacheSize:   1024,
	}
}

func (o *options) validate() error {
	if _, err := ParseConsistency(string(o.consistency)); err != nil {
		return err
	}
	if o.compression != "" {
		if _, err := vector.ParseCompression(string(o.compression)); err != nil {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}
	switch o.store.Driver {
	case "", storage.DriverMattn, storage.DriverModernc:
	default:
		return fmt.Errorf("%w: unknown metadata driver %q (supported: sqlite3, sqlite)", ErrConfiguration, o.store.Driver)
	}
	return nil
}

// Option configures Open.
type Option func(*options)

// WithForceRecreate wipes a non-empty folder that does not hold a database instead of failing.
func WithForceRecreate(force bool) Option {
	return func(o *options) { o.force = force }
}

// WithLogger sets a logger for debug and consistency events. A nil logger discards them.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = utils.OrNop(l) }
}

// WithConsistency sets the policy applied when the stores disagree on open.
func WithConsistency(c Consistency) Option {
	return func(o *options) { o.consistency = c }
}

// WithDriver selects the SQLite driver: "sqlite3" (mattn/go-sqlite3) or "sqlite" (modernc).
func WithDriver(driver string) Option {
	return func(o *options) { o.store.Driver = driver }
}

// WithJournalMode sets the SQLite journal_mode pragma.
func WithJournalMode(mode string) Option {
	return func(o *options) { o.store.JournalMode = mode }
}

// WithSynchronous sets the SQLite synchronous pragma.
func WithSynchronous(mode string) Option {
	return func(o *options) { o.store.Synchronous = mode }
}

// WithCacheSize sets how many metadata rows are cached for searches. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithSnapshotCompression sets the payload compression of flat index snapshots.
func WithSnapshotCompression(c vector.Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithNormalize L2-normalizes embeddings on Add and queries on Search.
func WithNormalize(normalize bool) Option {
	return func(o *options) { o.normalize = normalize }
}

type addOptions struct {
	perItem    []models.Metadata
	perItemSet bool
	shared     models.Metadata
}

// AddOption configures Add.
type AddOption func(*addOptions)

// WithMetadata attaches metadata[i] to item i. The slice must have one entry per text.
func WithMetadata(metadata []models.Metadata) AddOption {
	return func(o *addOptions) {
		o.perItem = metadata
		o.perItemSet = true
	}
}

// WithSharedMetadata attaches the same metadata to every item.
func WithSharedMetadata(metadata models.Metadata) AddOption {
	return func(o *addOptions) { o.shared = metadata }
}

type searchOptions struct {
	filterText     string
	filterExpr     filter.Expr
	withEmbeddings bool
}

// SearchOption configures Search.
type SearchOption func(*searchOptions)

// WithFilter keeps only documents whose metadata satisfies expr.
func WithFilter(expr string) SearchOption {
	return func(o *searchOptions) { o.filterText = expr }
}

// WithFilterExpr is WithFilter for an already parsed expression.
func WithFilterExpr(expr filter.Expr) SearchOption {
	return func(o *searchOptions) { o.filterExpr = expr }
}

// WithEmbeddings includes each document's stored embedding in the results.
func WithEmbeddings() SearchOption {
	return func(o *searchOptions) { o.withEmbeddings = true }
}
