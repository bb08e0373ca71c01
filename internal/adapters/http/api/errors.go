package api

import (
	"errors"
	"net/http"

	"github.com/okian/pairwise/internal/adapters/repository"
	service "github.com/okian/pairwise/internal/app"
	"github.com/okian/pairwise/internal/domain/calc"
	"github.com/okian/pairwise/internal/domain/session"
	"github.com/okian/pairwise/internal/validation"
)

// Sentinel kinds for API errors.
var (
	ErrServe      = errors.New("page serve failed")
	ErrBadRequest = errors.New("bad request")
	ErrTooLarge   = errors.New("request body too large")
)

// Error codes carried in errorResponse.Code.
const (
	codeBadRequest  = "bad_request"
	codeConflict    = "conflict"
	codeComplete    = "session_complete"
	codeUnavailable = "unavailable"
	codeInternal    = "internal_error"
	codeTooLarge    = "too_large"
)

const internalMessage = "internal error"

// classify maps an error to an HTTP status and error code. Server-side
// failures get a generic message so internals do not leak to clients.
func classify(err error) (int, string, string) {
	var verr *validation.Error
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, codeTooLarge, err.Error()
	case errors.Is(err, session.ErrComplete):
		return http.StatusConflict, codeComplete, err.Error()
	case errors.Is(err, service.ErrStaleChoice):
		return http.StatusConflict, codeConflict, err.Error()
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, session.ErrInvalidChoice),
		errors.Is(err, session.ErrInvalidImport),
		errors.Is(err, session.ErrInvalidLimit),
		errors.As(err, &verr):
		return http.StatusBadRequest, codeBadRequest, err.Error()
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, codeUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, codeInternal, internalMessage
	}
}

// isCalcInputError reports whether err is the caller's fault.
func isCalcInputError(err error) bool {
	var verr *validation.Error
	return errors.Is(err, calc.ErrInvalidNumber) ||
		errors.Is(err, calc.ErrUnsupportedOp) ||
		errors.Is(err, calc.ErrDivisionByZero) ||
		errors.Is(err, calc.ErrNotFinite) ||
		errors.As(err, &verr)
}
