package storeclient

import (
	"errors"
	"fmt"
)

// Sentinel errors for common store failure modes. Wrap with StoreError and
// test with errors.Is.
var (
	// ErrNotFound indicates the index, alias, or document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the store rejected the credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable indicates the store could not be reached or returned
	// a 5xx response.
	ErrUnavailable = errors.New("store unavailable")

	// ErrUnexpectedStatus indicates a response status the caller did not
	// expect for the operation.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// StoreError wraps a store operation failure with request context.
type StoreError struct {
	Op     string // operation name, e.g. "Count"
	Path   string // request path
	Status int    // HTTP status code, 0 on transport failure
	Err    error
}

func (e *StoreError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("storeclient: %s %s: status %d: %v", e.Op, e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("storeclient: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrapStatus maps an HTTP status code to a sentinel error.
func wrapStatus(op, path string, status int) error {
	var sentinel error
	switch {
	case status == 404:
		sentinel = ErrNotFound
	case status == 401 || status == 403:
		sentinel = ErrUnauthorized
	case status >= 500:
		sentinel = ErrUnavailable
	default:
		sentinel = ErrUnexpectedStatus
	}
	return &StoreError{Op: op, Path: path, Status: status, Err: sentinel}
}
