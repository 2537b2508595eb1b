package broadcast

import (
	"errors"
	"fmt"
)

// Sentinel errors for broadcast channels.
var (
	ErrClosed  = errors.New("broadcast channel closed")
	ErrPublish = errors.New("publish failed")
)

// DecodeError reports a payload rejected at the subscription boundary.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broadcast decode: %s: %v", e.Reason, e.Err)
	}
	return "broadcast decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }
