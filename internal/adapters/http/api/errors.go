package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/matchtrack/internal/adapters/repository"
	service "github.com/okian/matchtrack/internal/app"
	"github.com/okian/matchtrack/internal/domain/commit"
	"github.com/okian/matchtrack/internal/domain/connectivity"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrUpgrade    = errors.New("websocket upgrade failed")
)

// WrapKind tags err with an operation and an API error kind.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind returns a bare API error kind for an operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// errorStatus maps a domain error to a status code, an error code and
// whether the caller may retry as is.
func errorStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, connectivity.ErrOffline):
		return http.StatusServiceUnavailable, "offline", true
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started", true
	case errors.Is(err, commit.ErrInFlight), errors.Is(err, service.ErrBusy):
		return http.StatusConflict, "in_flight", true
	case errors.Is(err, service.ErrWrongRole):
		return http.StatusForbidden, "wrong_role", false
	case errors.Is(err, commit.ErrNotFound),
		errors.Is(err, service.ErrNotJoined),
		errors.Is(err, service.ErrNotAssigned),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found", false
	case errors.Is(err, commit.ErrLabelNotPermitted):
		return http.StatusBadRequest, "label_not_permitted", false
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrUnknownPlayer),
		errors.Is(err, repository.ErrInvalidEvent):
		return http.StatusBadRequest, "bad_request", false
	case errors.Is(err, commit.ErrPersist), errors.Is(err, service.ErrPublish):
		return http.StatusBadGateway, "upstream_failed", true
	case errors.Is(err, service.ErrSeedUnsupported):
		return http.StatusNotImplemented, "unsupported", false
	default:
		return http.StatusInternalServerError, "internal", false
	}
}
