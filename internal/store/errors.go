package store

import "errors"

var (
	// ErrNotFound is returned when a profile or habit does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a compare-and-swap write finds the row
	// changed since it was read. Callers re-read and retry.
	ErrConflict = errors.New("concurrent modification")
)
