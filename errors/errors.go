package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates that a backend (agent, store, server) cannot serve the call
	ErrUnavailable = errors.New("unavailable")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)
