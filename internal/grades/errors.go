package grades

import (
	"errors"
	"fmt"

	"github.com/alm9/grades-escolares-api/internal/store"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	// Use errors.Is(err, ErrNotFound) to check for a missing grade.
	ErrNotFound = errors.New("grade not found")

	// ErrNoData is returned by aggregates that are undefined over an empty
	// match set.
	ErrNoData = errors.New("no grades match")

	// ErrInvalidGrade is returned when a supplied field cannot be stored.
	ErrInvalidGrade = errors.New("invalid grade")

	// Store failures are passed through unchanged so callers only need this
	// package's names.
	ErrCorruptStore = store.ErrCorruptStore
	ErrIOFailure    = store.ErrIOFailure
	ErrNoState      = store.ErrNoState
)

// NotFoundError reports a grade id that is not in the collection.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("grade %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StoreUnavailable reports whether err means the grades file could not be
// read or written, as opposed to an ordinary lookup miss.
func StoreUnavailable(err error) bool {
	return errors.Is(err, ErrCorruptStore) || errors.Is(err, ErrIOFailure)
}
