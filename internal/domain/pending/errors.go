package pending

import "errors"

// Sentinel errors for pending queue operations.
var (
	ErrNotFound = errors.New("pending event not found")
)
