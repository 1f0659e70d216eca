package naan

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/naan/internal/folder"
	"github.com/hyperjump/naan/internal/storage"
	"github.com/hyperjump/naan/pkg/config"
	"github.com/hyperjump/naan/pkg/filter"
	"github.com/hyperjump/naan/pkg/models"
	"github.com/hyperjump/naan/pkg/utils"
	"github.com/hyperjump/naan/pkg/vector"
)

type (
	// Document is a search hit.
	Document = models.Document
	// Metadata holds scalar attributes attached to a vector.
	Metadata = models.Metadata
)

// DB is an open database. It is safe for concurrent searches; adds are serialized.
type DB struct {
	mu     sync.RWMutex
	closed bool

	folder *folder.Folder
	index  vector.Index
	store  storage.MetadataStore
	cache  *storage.CachedStore
	info   *storage.Info
	opts   options
	logger *zap.Logger

	// orphans are ordinals known to have no metadata row. Searches skip them.
	orphans *roaring64.Bitmap
}

// Open opens the database stored in the folder at path, creating it when the folder is
// missing or empty.
//
// For a new database index is required and becomes owned by the DB, which closes it on
// Close. For an existing database the index is loaded from the folder's snapshot and index
// is ignored; the caller keeps ownership of it.
func Open(ctx context.Context, path string, index vector.Index, opts ...Option) (*DB, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	f, err := folder.Open(path, o.force)
	if err != nil {
		return nil, translateError(err)
	}

	db := &DB{folder: f, opts: o, logger: o.logger}
	if err := db.open(ctx, index); err != nil {
		_ = f.Unlock()
		return nil, err
	}
	return db, nil
}

func (db *DB) open(ctx context.Context, index vector.Index) error {
	ready, err := db.folder.Ready()
	if err != nil {
		return err
	}
	if ready {
		err = db.load(ctx, index)
	} else {
		err = db.create(ctx, index)
	}
	if err != nil {
		return err
	}

	db.cache = storage.NewCachedStore(db.store, db.opts.cacheSize)
	db.store = db.cache

	report, err := db.check(ctx)
	if err == nil {
		err = db.applyPolicy(ctx, report)
	}
	if err != nil {
		_ = db.store.Close()
		if ready {
			_ = db.index.Close()
		}
		return err
	}
	return nil
}

// create initializes an empty folder with a fresh metadata store and the initial snapshot.
func (db *DB) create(ctx context.Context, index vector.Index) error {
	if isNil(index) {
		return fmt.Errorf("%s: %w", db.folder.Path(), ErrIndexUnset)
	}
	if err := db.applyCompression(index); err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(db.folder.DBFile(), db.opts.store)
	if err != nil {
		return fmt.Errorf("failed to create metadata store: %w", err)
	}
	info := &storage.Info{
		ID:        uuid.NewString(),
		Dimension: index.Dimension(),
		Metric:    string(index.Metric()),
		IndexType: indexType(index),
	}
	if err := store.Init(ctx, info); err != nil {
		_ = store.Close()
		db.removeFiles()
		return fmt.Errorf("failed to initialize metadata store: %w", err)
	}
	if err := index.WriteSnapshot(db.folder.IndexFile()); err != nil {
		_ = store.Close()
		db.removeFiles()
		return fmt.Errorf("failed to write index snapshot: %w", err)
	}

	db.index = index
	db.store = store
	db.info = info
	db.logger.Info("database created",
		zap.String("path", db.folder.Path()),
		zap.String("id", info.ID),
		zap.Int("dimension", info.Dimension),
		zap.String("metric", info.Metric),
	)
	return nil
}

// load opens an existing database. The caller's index, if any, is not used.
func (db *DB) load(ctx context.Context, callerIndex vector.Index) error {
	if !isNil(callerIndex) {
		db.logger.Debug("existing database found, ignoring the given index", zap.String("path", db.folder.Path()))
	}

	index, err := vector.ReadSnapshot(db.folder.IndexFile())
	if err != nil {
		return translateError(err)
	}
	if err := db.applyCompression(index); err != nil {
		_ = index.Close()
		return err
	}

	store, err := storage.NewSQLiteStore(db.folder.DBFile(), db.opts.store)
	if err != nil {
		_ = index.Close()
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	info, err := store.Info(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		db.logger.Warn("metadata store has no database info", zap.String("path", db.folder.Path()))
		info = &storage.Info{Dimension: index.Dimension(), Metric: string(index.Metric()), IndexType: indexType(index)}
	case err != nil:
		_ = store.Close()
		_ = index.Close()
		return fmt.Errorf("failed to read database info: %w", err)
	case info.Dimension != index.Dimension():
		_ = store.Close()
		_ = index.Close()
		return fmt.Errorf("%w: metadata store records dimension %d, index snapshot has %d",
			ErrInconsistent, info.Dimension, index.Dimension())
	}

	db.index = index
	db.store = store
	db.info = info
	db.logger.Info("database loaded",
		zap.String("path", db.folder.Path()),
		zap.String("id", info.ID),
		zap.Int("cardinality", index.Size()),
	)
	return nil
}

func (db *DB) applyCompression(index vector.Index) error {
	if db.opts.compression == "" {
		return nil
	}
	c, ok := index.(interface {
		SetCompression(vector.Compression) error
	})
	if !ok {
		return nil
	}
	if err := c.SetCompression(db.opts.compression); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

// removeFiles deletes whatever a failed create left in the folder.
func (db *DB) removeFiles() {
	for _, p := range storage.WithSidecars(db.folder.DBFile()) {
		_ = os.Remove(p)
	}
	_ = os.Remove(db.folder.IndexFile())
}

// OpenConfig opens the database described by cfg. The index is built from cfg.Index when
// the folder does not hold a database yet. When logger is nil one is created from cfg.Debug.
func OpenConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if logger == nil {
		var (
			l   *zap.Logger
			err error
		)
		if cfg.LogLevel != "" {
			l, err = utils.NewLevelLogger(cfg.LogLevel)
		} else {
			l, err = utils.NewLogger(cfg.Debug)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create logger: %w", ErrConfiguration, err)
		}
		logger = l
	}
	consistency, err := ParseConsistency(cfg.Database.Consistency)
	if err != nil {
		return nil, err
	}
	metric, err := vector.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	compression, err := vector.ParseCompression(cfg.Index.SnapshotCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	index, err := vector.NewIndex(cfg.Index.Type, cfg.Index.Dimensions, metric)
	if err != nil {
		return nil, translateError(err)
	}
	db, err := Open(ctx, cfg.Database.Path, index,
		WithForceRecreate(cfg.Database.ForceRecreate),
		WithLogger(logger),
		WithConsistency(consistency),
		WithDriver(cfg.Metadata.Driver),
		WithJournalMode(cfg.Metadata.JournalMode),
		WithSynchronous(cfg.Metadata.Synchronous),
		WithCacheSize(cfg.Metadata.CacheSize),
		WithSnapshotCompression(compression),
		WithNormalize(cfg.Index.Normalize),
	)
	if err != nil {
		_ = index.Close()
		return nil, err
	}
	if db.index != index {
		_ = index.Close()
	}
	return db, nil
}

// Name returns the database name, which is the folder's base name.
func (db *DB) Name() string { return db.folder.Name() }

// Path returns the storage folder path.
func (db *DB) Path() string { return db.folder.Path() }

// Index returns the vector index in use.
func (db *DB) Index() vector.Index { return db.index }

// IsTrained reports whether the index accepts vectors.
func (db *DB) IsTrained() bool { return db.index.IsTrained() }

// Add inserts one document per text and returns the ordinals assigned to them, in input
// order. All inputs are validated before either store is touched.
//
// Add is not atomic across the two stores. When the metadata transaction fails after the
// index snapshot was written, the returned error matches ErrPartialAdd and the affected
// ordinals are skipped by searches until the database is repaired.
func (db *DB) Add(ctx context.Context, embeddings [][]float32, texts []string, opts ...AddOption) ([]int64, error) {
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrClosed
	}
	if !db.index.IsTrained() {
		return nil, ErrNotTrained
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: %d embeddings, %d texts", ErrLengthMismatch, len(embeddings), len(texts))
	}
	if o.perItemSet && len(o.perItem) != len(texts) {
		return nil, fmt.Errorf("%w: %d metadata objects, %d texts", ErrMetadataLengthMismatch, len(o.perItem), len(texts))
	}
	dim := db.index.Dimension()
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d values, index expects %d", ErrDimensionMismatch, i, len(e), dim)
		}
	}
	metadata, err := normalizeMetadata(o, len(texts))
	if err != nil {
		return nil, err
	}
	n := len(texts)
	if n == 0 {
		return nil, nil
	}

	vectors := embeddings
	if db.opts.normalize {
		vectors = make([][]float32, n)
		for i, e := range embeddings {
			vectors[i] = utils.NormalizedCopy(e)
		}
	}

	first := int64(db.index.Size())
	intentID, err := db.store.RecordIntent(ctx, first, n)
	if err != nil {
		return nil, err
	}

	if err := db.index.Add(ctx, vectors); err != nil {
		grown := int64(db.index.Size()) - first
		if grown <= 0 {
			_ = db.store.InsertRows(ctx, nil, intentID)
			return nil, translateError(fmt.Errorf("failed to add vectors to index: %w", err))
		}
		// The index kept part of the batch; the intent stays for the next consistency check.
		db.markOrphans(first, int(grown))
		return nil, fmt.Errorf("%w: ordinals [%d, %d): failed to add vectors to index: %w",
			ErrPartialAdd, first, first+grown, err)
	}
	if err := db.index.WriteSnapshot(db.folder.IndexFile()); err != nil {
		if t, ok := db.index.(vector.Truncater); ok && t.Truncate(int(first)) == nil {
			_ = db.store.InsertRows(ctx, nil, intentID)
			return nil, fmt.Errorf("%w: failed to write index snapshot: %w", ErrState, err)
		}
		db.markOrphans(first, n)
		return nil, fmt.Errorf("%w: ordinals [%d, %d): failed to write index snapshot: %w",
			ErrPartialAdd, first, first+int64(n), err)
	}
	db.logger.Debug("index snapshot written",
		zap.String("path", db.folder.IndexFile()),
		zap.Int("cardinality", db.index.Size()),
	)

	rows := make([]*models.Row, n)
	ordinals := make([]int64, n)
	for i := range texts {
		ordinals[i] = first + int64(i)
		rows[i] = &models.Row{
			Ordinal:   ordinals[i],
			Text:      texts[i],
			Embedding: slices.Clone(vectors[i]),
			Metadata:  metadata[i],
		}
	}
	if err := db.store.InsertRows(ctx, rows, intentID); err != nil {
		db.markOrphans(first, n)
		return nil, fmt.Errorf("%w: ordinals [%d, %d): %w", ErrPartialAdd, first, first+int64(n), err)
	}

	db.logger.Debug("documents added",
		zap.String("db", db.folder.Name()),
		zap.Int64("first_ordinal", first),
		zap.Int("count", n),
	)
	return ordinals, nil
}

func normalizeMetadata(o addOptions, n int) ([]models.Metadata, error) {
	out := make([]models.Metadata, n)
	var shared models.Metadata
	if o.shared != nil {
		var err error
		if shared, err = o.shared.Normalize(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
		}
	}
	for i := 0; i < n; i++ {
		var md models.Metadata
		if o.perItemSet && o.perItem[i] != nil {
			var err error
			if md, err = o.perItem[i].Normalize(); err != nil {
				return nil, fmt.Errorf("%w: item %d: %w", ErrInvalidMetadata, i, err)
			}
		}
		if shared != nil {
			merged := maps.Clone(shared)
			maps.Copy(merged, md)
			md = merged
		}
		out[i] = md
	}
	return out, nil
}

func (db *DB) markOrphans(first int64, n int) {
	if db.orphans == nil {
		db.orphans = roaring64.New()
	}
	db.orphans.AddRange(uint64(first), uint64(first)+uint64(n))
}

// Search returns up to k documents nearest to query, nearest first. Fewer than k documents
// are returned when the index holds fewer vectors or the filter excludes some of the k
// nearest. A filter that fails to parse is reported before the index is queried.
func (db *DB) Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]*Document, error) {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	expr := o.filterExpr
	if o.filterText != "" {
		parsed, err := filter.Parse(o.filterText)
		if err != nil {
			return nil, translateError(err)
		}
		expr = parsed
	}
	if dim := db.index.Dimension(); len(query) != dim {
		return nil, fmt.Errorf("%w: query has %d values, index expects %d", ErrDimensionMismatch, len(query), dim)
	}
	if db.opts.normalize {
		query = utils.NormalizedCopy(query)
	}

	limit := min(k, db.index.Size())
	docs := make([]*Document, 0, limit)
	if limit == 0 {
		return docs, nil
	}
	results, err := db.index.Search(ctx, query, limit)
	if err != nil {
		return nil, translateError(fmt.Errorf("index search failed: %w", err))
	}

	for _, r := range results {
		if r.Ordinal == vector.NoResult {
			continue
		}
		if db.orphans != nil && db.orphans.Contains(uint64(r.Ordinal)) {
			db.logger.Debug("skipping orphaned ordinal", zap.Int64("ordinal", r.Ordinal))
			continue
		}
		row, err := db.store.Get(ctx, r.Ordinal, o.withEmbeddings)
		if errors.Is(err, storage.ErrNotFound) {
			db.logger.Debug("skipping ordinal without metadata row", zap.Int64("ordinal", r.Ordinal))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load row %d: %w", r.Ordinal, err)
		}
		if expr != nil {
			ok, err := filter.Eval(expr, row.Metadata)
			if err != nil {
				return nil, translateError(err)
			}
			if !ok {
				continue
			}
		}
		doc := row.Document(r.Distance, o.withEmbeddings)
		doc.Metadata = maps.Clone(doc.Metadata)
		doc.Embedding = slices.Clone(doc.Embedding)
		docs = append(docs, doc)
	}
	db.logger.Debug("search completed",
		zap.Int("k", k),
		zap.Int("candidates", len(results)),
		zap.Int("results", len(docs)),
		zap.String("filter", utils.Truncate(o.filterText, 120)))
	return docs, nil
}

// Train trains the index with vectors and persists the trained index.
func (db *DB) Train(ctx context.Context, vectors [][]float32) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	t, ok := db.index.(vector.Trainer)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTrainable, indexType(db.index))
	}
	dim := db.index.Dimension()
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: training vector %d has %d values, index expects %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	if err := t.Train(ctx, vectors); err != nil {
		return translateError(fmt.Errorf("failed to train index: %w", err))
	}
	if err := db.index.WriteSnapshot(db.folder.IndexFile()); err != nil {
		return fmt.Errorf("failed to write index snapshot: %w", err)
	}
	return nil
}

// Check compares the index with the metadata store. Orphans found are skipped by later
// searches.
func (db *DB) Check(ctx context.Context) (*ConsistencyReport, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrClosed
	}
	report, err := db.check(ctx)
	if err != nil {
		return nil, err
	}
	db.orphans = report.Orphans
	return report, nil
}

// Stats describes an open database.
type Stats struct {
	ID          string
	Name        string
	Path        string
	Dimension   int
	Metric      vector.Metric
	IndexType   string
	Cardinality int64
	Rows        int64
	Trained     bool
	CreatedAt   time.Time
	// DiskUsageBytes is the size of the database file, its SQLite sidecars and the snapshot.
	DiskUsageBytes int64
	CacheHits      int64
	CacheMisses    int64
}

// Stats returns sizes and settings of the database.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}
	rows, err := db.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	usage, err := storage.DiskUsageBytes(append(storage.WithSidecars(db.folder.DBFile()), db.folder.IndexFile())...)
	if err != nil {
		return nil, fmt.Errorf("failed to compute disk usage: %w", err)
	}
	hits, misses := db.cache.HitRate()
	return &Stats{
		ID:             db.info.ID,
		Name:           db.folder.Name(),
		Path:           db.folder.Path(),
		Dimension:      db.index.Dimension(),
		Metric:         db.index.Metric(),
		IndexType:      indexType(db.index),
		Cardinality:    int64(db.index.Size()),
		Rows:           rows,
		Trained:        db.index.IsTrained(),
		CreatedAt:      db.info.CreatedAt,
		DiskUsageBytes: usage,
		CacheHits:      hits,
		CacheMisses:    misses,
	}, nil
}

// Close releases the metadata store, the index and the folder lock. Calling Close more than
// once is a no-op.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true
	return errors.Join(db.store.Close(), db.index.Close(), db.folder.Unlock())
}

// Drop closes the database and deletes its storage folder with everything in it. The folder
// stays locked until it is gone.
func (db *DB) Drop() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	db.closed = true
	closeErr := errors.Join(db.store.Close(), db.index.Close())
	if err := db.folder.Remove(); err != nil {
		return errors.Join(closeErr, fmt.Errorf("%w: %w", ErrState, err))
	}
	db.logger.Info("database dropped", zap.String("path", db.folder.Path()))
	return closeErr
}

func indexType(index vector.Index) string {
	if t, ok := index.(interface{ Type() string }); ok {
		return t.Type()
	}
	return fmt.Sprintf("%T", index)
}

// isNil reports whether index is nil or a typed nil pointer.
func isNil(index vector.Index) bool {
	if index == nil {
		return true
	}
	switch v := index.(type) {
	case *vector.FlatIndex:
		return v == nil
	case *vector.FAISSIndex:
		return v == nil
	}
	return false
}
