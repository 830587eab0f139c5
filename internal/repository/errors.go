package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned when an optimistic update lost a race:
	// the row's version no longer matches the one the caller read.
	ErrVersionConflict = errors.New("version conflict")
)
