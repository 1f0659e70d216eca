package naan

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"go.uber.org/zap"

	"github.com/hyperjump/naan/internal/storage"
	"github.com/hyperjump/naan/pkg/vector"
)

// PendingAdd is an add whose rows were never committed to the metadata store.
type PendingAdd = storage.Intent

// ConsistencyReport compares the ordinals held by the index with the rows of the metadata
// store.
type ConsistencyReport struct {
	// Cardinality is the number of vectors in the index.
	Cardinality int64
	// Rows is the number of metadata rows.
	Rows int64
	// Orphans are index ordinals without a metadata row.
	Orphans *roaring64.Bitmap
	// Dangling are metadata rows whose ordinal is not in the index.
	Dangling *roaring64.Bitmap
	// Interrupted lists add intents that were never resolved.
	Interrupted []PendingAdd
}

// Consistent reports whether the stores agree and no add was interrupted.
func (r *ConsistencyReport) Consistent() bool {
	return r.Orphans.IsEmpty() && r.Dangling.IsEmpty() && len(r.Interrupted) == 0
}

// tailOrphans reports whether the only divergence is a run of orphans at the end of the
// index, which is what an add interrupted after the snapshot write leaves behind.
func (r *ConsistencyReport) tailOrphans() bool {
	if !r.Dangling.IsEmpty() {
		return false
	}
	return r.Orphans.IsEmpty() || int64(r.Orphans.Minimum()) == r.Rows
}

func (r *ConsistencyReport) String() string {
	return fmt.Sprintf("cardinality=%d rows=%d orphans=%d dangling=%d interrupted=%d",
		r.Cardinality, r.Rows, r.Orphans.GetCardinality(), r.Dangling.GetCardinality(), len(r.Interrupted))
}

// check builds a report from the current index and metadata store.
func (db *DB) check(ctx context.Context) (*ConsistencyReport, error) {
	card := int64(db.index.Size())
	present := roaring64.New()
	err := db.store.Ordinals(ctx, func(ordinal int64) error {
		present.Add(uint64(ordinal))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata rows: %w", err)
	}
	intents, err := db.store.PendingIntents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list add intents: %w", err)
	}

	expected := roaring64.New()
	expected.AddRange(0, uint64(card))
	return &ConsistencyReport{
		Cardinality: card,
		Rows:        int64(present.GetCardinality()),
		Orphans:     roaring64.AndNot(expected, present),
		Dangling:    roaring64.AndNot(present, expected),
		Interrupted: intents,
	}, nil
}

// applyPolicy acts on report according to the configured consistency policy.
func (db *DB) applyPolicy(ctx context.Context, report *ConsistencyReport) error {
	if report.Consistent() {
		db.orphans = report.Orphans
		return nil
	}
	switch db.opts.consistency {
	case ConsistencyStrict:
		return &InconsistencyError{Report: report}
	case ConsistencyRepair:
		repaired, err := db.repair(ctx, report)
		if err != nil {
			return err
		}
		db.orphans = repaired.Orphans
		return nil
	default:
		db.logger.Warn("index and metadata store disagree",
			zap.String("path", db.folder.Path()),
			zap.Int64("cardinality", report.Cardinality),
			zap.Int64("rows", report.Rows),
			zap.Uint64("orphans", report.Orphans.GetCardinality()),
			zap.Uint64("dangling", report.Dangling.GetCardinality()),
			zap.Int("interrupted", len(report.Interrupted)),
		)
		for _, in := range report.Interrupted {
			db.logger.Warn("add was interrupted",
				zap.Int64("intent", in.ID),
				zap.Int64("first_ordinal", in.FirstOrdinal),
				zap.Int64("end_ordinal", in.Last()),
				zap.Time("created_at", in.CreatedAt),
			)
		}
		db.orphans = report.Orphans
		return nil
	}
}

// repair truncates tail orphans from the index, rewrites its snapshot and clears the intent
// log. Any other divergence is returned as an *InconsistencyError.
func (db *DB) repair(ctx context.Context, report *ConsistencyReport) (*ConsistencyReport, error) {
	if !report.tailOrphans() {
		return nil, &InconsistencyError{Report: report}
	}
	if !report.Orphans.IsEmpty() {
		t, ok := db.index.(vector.Truncater)
		if !ok {
			return nil, &InconsistencyError{Report: report}
		}
		if err := t.Truncate(int(report.Rows)); err != nil {
			return nil, fmt.Errorf("failed to truncate index: %w", err)
		}
		if err := db.index.WriteSnapshot(db.folder.IndexFile()); err != nil {
			return nil, fmt.Errorf("failed to write repaired snapshot: %w", err)
		}
	}
	if err := db.store.ClearIntents(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear add intents: %w", err)
	}
	db.logger.Info("repaired interrupted add",
		zap.String("path", db.folder.Path()),
		zap.Int64("truncated_from", report.Cardinality),
		zap.Int64("truncated_to", report.Rows),
	)

	repaired, err := db.check(ctx)
	if err != nil {
		return nil, err
	}
	if !repaired.Consistent() {
		return nil, &InconsistencyError{Report: repaired}
	}
	return repaired, nil
}
