package service

import "errors"

// Sentinel errors returned by the service.
var (
	// ErrStaleChoice means the client answered a pair other than the current one.
	ErrStaleChoice = errors.New("choice does not match the current pair")
	// ErrNotStarted is returned when an operation runs before Start.
	ErrNotStarted = errors.New("service not started")
)
