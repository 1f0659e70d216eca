// Package storage persists the rows behind vector ordinals: text, an embedding copy and typed
// scalar metadata, plus the add intent log used to detect interrupted inserts.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/naan/pkg/models"
)

// FormatVersion is written to db_info when a database is created.
const FormatVersion = 1

// ErrNotFound is returned when no row exists for an ordinal.
var ErrNotFound = errors.New("not found")

// Info describes the database as recorded at creation time.
type Info struct {
	ID            string
	Dimension     int
	Metric        string
	IndexType     string
	FormatVersion int
	CreatedAt     time.Time
}

// Intent records an add that was announced but whose rows have not been committed yet.
type Intent struct {
	ID           int64
	FirstOrdinal int64
	Count        int
	CreatedAt    time.Time
}

// Last returns the ordinal one past the intent's range.
func (i Intent) Last() int64 {
	return i.FirstOrdinal + int64(i.Count)
}

// MetadataStore defines row persistence keyed by vector ordinal.
type MetadataStore interface {
	// Init records info for a freshly created database.
	Init(ctx context.Context, info *Info) error
	Info(ctx context.Context) (*Info, error)

	// RecordIntent logs that ordinals [first, first+count) are about to be added.
	RecordIntent(ctx context.Context, first int64, count int) (int64, error)
	// InsertRows inserts rows and clears intentID in one transaction. Nothing is written
	// when any row fails.
	InsertRows(ctx context.Context, rows []*models.Row, intentID int64) error
	PendingIntents(ctx context.Context) ([]Intent, error)
	ClearIntents(ctx context.Context) error

	Get(ctx context.Context, ordinal int64, withEmbedding bool) (*models.Row, error)
	Count(ctx context.Context) (int64, error)
	// Ordinals calls fn for every stored ordinal in ascending order.
	Ordinals(ctx context.Context, fn func(ordinal int64) error) error

	Close() error
}
