package commit

import "errors"

// Sentinel errors for commit operations.
var (
	ErrInFlight          = errors.New("commit already in flight")
	ErrNotFound          = errors.New("pending event not found")
	ErrLabelNotPermitted = errors.New("event type not permitted for this tracker")
	ErrPersist           = errors.New("persisting events failed")
	ErrPartialWrite      = errors.New("store persisted fewer rows than submitted")
)
