package repository

import "errors"

// Sentinel kinds for session store errors.
var (
	ErrNotFound    = errors.New("session not found")
	ErrUnavailable = errors.New("session store unavailable")
	ErrClosed      = errors.New("session store closed")
)
