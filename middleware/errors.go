package middleware

import "errors"

var (
	// ErrRateLimitExceeded indicates rate limit has been exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrAgentPanicked indicates an agent panicked while serving a request
	ErrAgentPanicked = errors.New("agent panicked")
)
