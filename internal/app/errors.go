package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrNotJoined       = errors.New("tracker has not joined this match")
	ErrNotAssigned     = errors.New("tracker has no assignment in this match")
	ErrWrongRole       = errors.New("operation not available for this tracker role")
	ErrBusy            = errors.New("a possession update is already being processed")
	ErrUnknownPlayer   = errors.New("player is not on the match roster")
	ErrPublish         = errors.New("possession announcement could not be published")
	ErrSeedUnsupported = errors.New("store does not accept roster or assignment writes")
	ErrInvalidArgument = errors.New("invalid argument")
)
