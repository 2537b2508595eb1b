package repository

import "errors"

// Sentinel errors for store operations.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidEvent = errors.New("invalid event")
)
