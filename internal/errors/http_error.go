package errors

import (
	"errors"
	"net/http"

	"parkhub/internal/repository"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// FromDomain maps the core error taxonomy onto HTTP responses. Every entry
// is a recoverable outcome for the caller, never a server fault.
func FromDomain(err error) *HTTPError {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrNoAvailableSpot),
		errors.Is(err, repository.ErrLotInactive),
		errors.Is(err, repository.ErrAlreadyClosed),
		errors.Is(err, repository.ErrInvalidSpotState),
		errors.Is(err, repository.ErrInsufficientFreeCapacity),
		errors.Is(err, repository.ErrLotHasOccupiedSpots),
		errors.Is(err, repository.ErrNoOpRejected):
		return NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrValidation),
		errors.Is(err, repository.ErrInvalidDuration):
		return NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
