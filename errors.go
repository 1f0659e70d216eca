package naan

import (
	"errors"
	"fmt"

	"github.com/hyperjump/naan/internal/folder"
	"github.com/hyperjump/naan/pkg/filter"
	"github.com/hyperjump/naan/pkg/vector"
)

// Error categories. Every error returned by this package matches one of them with errors.Is.
var (
	// ErrConfiguration reports a bad path, folder content or option.
	ErrConfiguration = errors.New("configuration error")
	// ErrState reports an operation that is invalid in the database's current state.
	ErrState = errors.New("invalid state")
	// ErrValidation reports bad input to Add, Search or Train.
	ErrValidation = errors.New("validation error")
	// ErrParse reports a malformed filter expression.
	ErrParse = errors.New("filter parse error")
	// ErrOrphanedOrdinal reports index ordinals without a metadata row.
	ErrOrphanedOrdinal = errors.New("orphaned ordinal")
)

type categorized struct {
	msg      string
	category error
}

func (e *categorized) Error() string { return e.msg }
func (e *categorized) Unwrap() error { return e.category }

func newError(category error, msg string) error {
	return &categorized{msg: msg, category: category}
}

var (
	ErrNotADirectory     = newError(ErrConfiguration, "storage path is not a directory")
	ErrDirectoryNotEmpty = newError(ErrConfiguration, "directory not empty and not a naan database")
	ErrLocked            = newError(ErrState, "storage folder is locked")
	ErrIndexUnset        = newError(ErrState, "no index given for a new database")
	ErrNotTrained        = newError(ErrState, "the index needs to be trained")
	ErrNotTrainable      = newError(ErrState, "the index does not support training")
	ErrClosed            = newError(ErrState, "database is closed")
	ErrInconsistent      = newError(ErrState, "index and metadata store disagree")
	ErrPartialAdd        = newError(ErrOrphanedOrdinal, "add was applied to the index but not to the metadata store")

	ErrLengthMismatch         = newError(ErrValidation, "the number of embeddings must match the number of texts")
	ErrMetadataLengthMismatch = newError(ErrValidation, "the number of metadata objects must match the number of texts")
	ErrDimensionMismatch      = newError(ErrValidation, "dimension mismatch")
	ErrInvalidMetadata        = newError(ErrValidation, "invalid metadata")
	ErrInvalidK               = newError(ErrValidation, "k must be positive")
)

// translateError maps errors from the folder, filter and vector packages onto this package's
// sentinels. The original error stays reachable with errors.Is and errors.As.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, folder.ErrNotADirectory):
		return fmt.Errorf("%w: %w", ErrNotADirectory, err)
	case errors.Is(err, folder.ErrDirectoryNotEmpty):
		return fmt.Errorf("%w: %w", ErrDirectoryNotEmpty, err)
	case errors.Is(err, folder.ErrLocked):
		return fmt.Errorf("%w: %w", ErrLocked, err)
	}

	if errors.Is(err, filter.ErrSyntax) || errors.Is(err, filter.ErrUnknownOperator) {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}

	switch {
	case errors.Is(err, vector.ErrCorruptSnapshot):
		return fmt.Errorf("%w: %w", ErrState, err)
	case errors.Is(err, vector.ErrFAISSUnavailable):
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return err
}

// InconsistencyError is returned by Open when the index and the metadata store disagree and
// the consistency policy does not allow opening anyway.
type InconsistencyError struct {
	Report *ConsistencyReport
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("index and metadata store disagree: %s", e.Report)
}

// Is matches ErrOrphanedOrdinal when the report lists orphans.
func (e *InconsistencyError) Is(target error) bool {
	return target == ErrOrphanedOrdinal && e.Report != nil && !e.Report.Orphans.IsEmpty()
}

func (e *InconsistencyError) Unwrap() error { return ErrInconsistent }
