package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist
	// (or, for caches, has expired).
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a unique key is violated by an insert.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
