package session

import "errors"

var (
	// ErrComplete is returned when a comparison is recorded on a finished session.
	ErrComplete = errors.New("session is complete")
	// ErrInvalidState reports a serialized session that failed validation.
	ErrInvalidState = errors.New("invalid session state")
	// ErrInvalidImport reports an import payload that was rejected.
	ErrInvalidImport = errors.New("invalid import")
	// ErrInvalidLimit is returned for a non-positive standings limit.
	ErrInvalidLimit = errors.New("invalid limit")
	// ErrInvalidChoice is returned for an unknown choice name.
	ErrInvalidChoice = errors.New("invalid choice")
)
