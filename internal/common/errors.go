package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStorage marks failures at the storage engine boundary: opening the
	// store, opening a table, reading, writing or committing. Never retried.
	ErrStorage = errors.New("storage error")

	// ErrCorruptRecord is returned by strict decoding when stored bytes fail
	// structural validation. The tolerant decode path logs it instead.
	ErrCorruptRecord = errors.New("corrupt record")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation / account errors.
	ErrValidation = errors.New("validation error")
	ErrUserExists = errors.New("user already exists")

	// ErrMalformedHash means a stored credential record could not be parsed.
	// It is an operational problem, not a failed login.
	ErrMalformedHash = errors.New("malformed password hash")
)
