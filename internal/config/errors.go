package config

import (
	"errors"
)

// Errors returned while loading and validating configuration. Validation
// failures always wrap ErrInvalidConfig; the narrower kinds say which
// driver setting is wrong.
var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrLoadConfig     = errors.New("load config failed")
	ErrUnknownDriver  = errors.New("unknown driver")
	ErrMissingBackend = errors.New("driver backend address missing")
)
