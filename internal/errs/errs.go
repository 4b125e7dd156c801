// Package errs holds the error sentinels shared across the service layers.
// Handlers map them onto HTTP status codes with errors.Is.
package errs

import "errors"

var (
	// ErrInvalidArgument marks caller mistakes. They are rejected before any
	// record mutation takes place.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks keyed reads of ids that do not exist. Soft-deleted
	// rows count as absent.
	ErrNotFound = errors.New("not found")
)
