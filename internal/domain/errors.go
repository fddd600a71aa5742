package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrWriteFailed        = errors.New("write failed")
)

// Retryable reports whether an error maps to a transient downstream
// failure. The payment gateway redelivers its notification on a 5xx
// response, and the status writer's idempotency makes that redelivery
// safe.
func Retryable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrWriteFailed)
}
