package domain

import "errors"

var (
	// Caller-facing taxonomy
	ErrInvalidInput = errors.New("invalid input")
	ErrSlugTaken    = errors.New("slug already taken")
	ErrNotFound     = errors.New("entity not found")
	ErrConflict     = errors.New("conflicting concurrent update, retry")

	// Infrastructure errors
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
