package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/hyperjump/naan/pkg/models"
	"github.com/hyperjump/naan/pkg/utils"
)

// Driver names registered with database/sql.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// Options configures the SQLite connection.
type Options struct {
	// Driver is DriverMattn (default) or DriverModernc.
	Driver      string
	JournalMode string
	Synchronous string
}

func (o Options) withDefaults() Options {
	if o.Driver == "" {
		o.Driver = DriverMattn
	}
	if o.JournalMode == "" {
		o.JournalMode = "DELETE"
	}
	if o.Synchronous == "" {
		o.Synchronous = "FULL"
	}
	o.JournalMode = strings.ToUpper(o.JournalMode)
	o.Synchronous = strings.ToUpper(o.Synchronous)
	return o
}

// dsn builds a connection string that applies the pragmas on every new connection.
func (o Options) dsn(path string) (string, error) {
	q := url.Values{}
	switch o.Driver {
	case DriverMattn:
		q.Set("_journal_mode", o.JournalMode)
		q.Set("_synchronous", o.Synchronous)
		q.Set("_foreign_keys", "1")
		q.Set("_busy_timeout", "5000")
	case DriverModernc:
		q.Add("_pragma", "journal_mode("+o.JournalMode+")")
		q.Add("_pragma", "synchronous("+o.Synchronous+")")
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", "busy_timeout(5000)")
	default:
		return "", fmt.Errorf("unknown sqlite driver: %s (supported: sqlite3, sqlite)", o.Driver)
	}
	return "file:" + path + "?" + q.Encode(), nil
}

// SQLiteStore implements MetadataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string, opts Options) (*SQLiteStore, error) {
	opts = opts.withDefaults()
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn, err := opts.dsn(dbPath)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS db_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vectors (
		vector_id INTEGER PRIMARY KEY,
		text TEXT NOT NULL,
		embedding BLOB,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vectors_meta (
		vector_id INTEGER NOT NULL,
		key TEXT NOT NULL,
		kind TEXT NOT NULL,
		int_value INTEGER,
		real_value REAL,
		text_value TEXT,
		PRIMARY KEY (vector_id, key),
		FOREIGN KEY (vector_id) REFERENCES vectors(vector_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_vectors_meta_key ON vectors_meta(key);

	CREATE TABLE IF NOT EXISTS pending_adds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_ordinal INTEGER NOT NULL,
		count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Init records info in db_info. A missing ID or creation time is filled in.
func (s *SQLiteStore) Init(ctx context.Context, info *Info) error {
	if info.FormatVersion == 0 {
		info.FormatVersion = FormatVersion
	}
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}
	values := map[string]string{
		"id":             info.ID,
		"dimension":      strconv.Itoa(info.Dimension),
		"metric":         info.Metric,
		"index_type":     info.IndexType,
		"format_version": strconv.Itoa(info.FormatVersion),
		"created_at":     info.CreatedAt.Format(time.RFC3339Nano),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO db_info (key, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for k, v := range values {
		if _, err := stmt.ExecContext(ctx, k, v); err != nil {
			return fmt.Errorf("failed to write db_info %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Info returns the values recorded by Init, or ErrNotFound when the database has none.
func (s *SQLiteStore) Info(ctx context.Context) (*Info, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM db_info`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if values["id"] == "" {
		return nil, fmt.Errorf("database info: %w", ErrNotFound)
	}

	info := &Info{
		ID:        values["id"],
		Metric:    values["metric"],
		IndexType: values["index_type"],
	}
	if info.Dimension, err = strconv.Atoi(values["dimension"]); err != nil {
		return nil, fmt.Errorf("invalid stored dimension %q: %w", values["dimension"], err)
	}
	if v := values["format_version"]; v != "" {
		if info.FormatVersion, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid stored format version %q: %w", v, err)
		}
	}
	if v := values["created_at"]; v != "" {
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("invalid stored creation time %q: %w", v, err)
		}
	}
	return info, nil
}

// RecordIntent logs an add of count ordinals starting at first and returns the intent ID.
func (s *SQLiteStore) RecordIntent(ctx context.Context, first int64, count int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_adds (first_ordinal, count, created_at) VALUES (?, ?, ?)`,
		first, count, time.Now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record add intent: %w", err)
	}
	return res.LastInsertId()
}

// InsertRows inserts rows with their metadata and deletes intentID (when non-zero) in a
// single transaction. Metadata values must already be normalized.
func (s *SQLiteStore) InsertRows(ctx context.Context, rows []*models.Row, intentID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rowStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vectors (vector_id, text, embedding, created_at) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer rowStmt.Close()

	metaStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vectors_meta (vector_id, key, kind, int_value, real_value, text_value)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer metaStmt.Close()

	now := time.Now().UnixNano()
	for _, row := range rows {
		var blob []byte
		if row.Embedding != nil {
			blob = utils.Float32sToBytes(row.Embedding)
		}
		if _, err := rowStmt.ExecContext(ctx, row.Ordinal, row.Text, blob, now); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", row.Ordinal, err)
		}
		for key, value := range row.Metadata {
			kind, intVal, realVal, textVal, err := encodeValue(value)
			if err != nil {
				return fmt.Errorf("row %d metadata %q: %w", row.Ordinal, key, err)
			}
			if _, err := metaStmt.ExecContext(ctx, row.Ordinal, key, string(kind), intVal, realVal, textVal); err != nil {
				return fmt.Errorf("failed to insert metadata for row %d: %w", row.Ordinal, err)
			}
		}
	}

	if intentID != 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_adds WHERE id = ?`, intentID); err != nil {
			return fmt.Errorf("failed to clear add intent: %w", err)
		}
	}
	return tx.Commit()
}

func encodeValue(v any) (models.Kind, sql.NullInt64, sql.NullFloat64, sql.NullString, error) {
	var (
		i sql.NullInt64
		f sql.NullFloat64
		t sql.NullString
	)
	kind, ok := models.KindOf(v)
	if !ok {
		return "", i, f, t, fmt.Errorf("unsupported metadata value type %T", v)
	}
	switch x := v.(type) {
	case int64:
		i = sql.NullInt64{Int64: x, Valid: true}
	case bool:
		var n int64
		if x {
			n = 1
		}
		i = sql.NullInt64{Int64: n, Valid: true}
	case float64:
		f = sql.NullFloat64{Float64: x, Valid: true}
	case string:
		t = sql.NullString{String: x, Valid: true}
	}
	return kind, i, f, t, nil
}

func decodeValue(kind string, i sql.NullInt64, f sql.NullFloat64, t sql.NullString) (any, error) {
	switch models.Kind(kind) {
	case models.KindInt:
		return i.Int64, nil
	case models.KindBool:
		return i.Int64 != 0, nil
	case models.KindFloat:
		return f.Float64, nil
	case models.KindString:
		return t.String, nil
	}
	return nil, fmt.Errorf("unknown stored metadata kind %q", kind)
}

// PendingIntents returns the add intents that were never committed, oldest first.
func (s *SQLiteStore) PendingIntents(ctx context.Context) ([]Intent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, first_ordinal, count, created_at FROM pending_adds ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []Intent
	for rows.Next() {
		var in Intent
		var created int64
		if err := rows.Scan(&in.ID, &in.FirstOrdinal, &in.Count, &created); err != nil {
			return nil, err
		}
		in.CreatedAt = time.Unix(0, created)
		intents = append(intents, in)
	}
	return intents, rows.Err()
}

// ClearIntents removes every recorded intent.
func (s *SQLiteStore) ClearIntents(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_adds`)
	return err
}

// Get returns the row stored for ordinal. The embedding is loaded only when withEmbedding is set.
func (s *SQLiteStore) Get(ctx context.Context, ordinal int64, withEmbedding bool) (*models.Row, error) {
	row := models.Row{Ordinal: ordinal}
	var blob []byte
	query := `SELECT text, NULL FROM vectors WHERE vector_id = ?`
	if withEmbedding {
		query = `SELECT text, embedding FROM vectors WHERE vector_id = ?`
	}
	err := s.db.QueryRowContext(ctx, query, ordinal).Scan(&row.Text, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("row %d: %w", ordinal, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if blob != nil {
		if row.Embedding, err = utils.BytesToFloat32s(blob); err != nil {
			return nil, fmt.Errorf("row %d embedding: %w", ordinal, err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, kind, int_value, real_value, text_value FROM vectors_meta WHERE vector_id = ?`,
		ordinal,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key, kind string
			i         sql.NullInt64
			f         sql.NullFloat64
			t         sql.NullString
		)
		if err := rows.Scan(&key, &kind, &i, &f, &t); err != nil {
			return nil, err
		}
		v, err := decodeValue(kind, i, f, t)
		if err != nil {
			return nil, fmt.Errorf("row %d metadata %q: %w", ordinal, key, err)
		}
		if row.Metadata == nil {
			row.Metadata = make(models.Metadata)
		}
		row.Metadata[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &row, nil
}

// Count returns the number of stored rows.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&count)
	return count, err
}

// Ordinals calls fn for every stored ordinal in ascending order and stops at the first error.
func (s *SQLiteStore) Ordinals(ctx context.Context, fn func(ordinal int64) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT vector_id FROM vectors ORDER BY vector_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ordinal int64
		if err := rows.Scan(&ordinal); err != nil {
			return err
		}
		if err := fn(ordinal); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
