package storage

import "errors"

// Errors shared by every storage backend.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a record with the same key already
	// exists. Audit records are written once and never updated.
	ErrDuplicateKey = errors.New("duplicate key: audit records are append-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
