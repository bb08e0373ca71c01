// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	service "github.com/okian/pairwise/internal/app"
	"github.com/okian/pairwise/internal/validation"
)

// RankingHandler serves the pairwise ranking session API. Every route
// resolves the session from the cookie and refreshes the cookie with the
// id the service settled on.
type RankingHandler struct {
	deps      RankingDependencies
	cookies   sessionCookies
	maxLimit  int
	maxImport int64
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies, opts Options) *RankingHandler {
	opts = opts.withDefaults()
	return &RankingHandler{
		deps:      deps,
		cookies:   sessionCookies{name: opts.CookieName, secure: opts.CookieSecure},
		maxLimit:  opts.MaxStandingsLimit,
		maxImport: opts.MaxImportBytes,
	}
}

// choiceRequest mirrors the OpenAPI schema for POST /api/ranking/choice.
type choiceRequest struct {
	Choice    string `json:"choice" validate:"required,oneof=left right draw a b"`
	PairIndex *int   `json:"pairIndex" validate:"required,gte=0"`
}

type standingsQuery struct {
	Limit int `query:"limit" validate:"gte=1"`
}

type standingsResponse struct {
	SessionID string                 `json:"sessionId"`
	Standings []service.StandingView `json:"standings"`
}

type catalogResponse struct {
	Items []service.ItemView `json:"items"`
}

// HandleSession handles GET /api/ranking/session.
func (h *RankingHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	v, err := h.deps.View(r.Context(), h.cookies.get(r))
	h.respond(w, v, err)
}

// HandleChoice handles POST /api/ranking/choice.
func (h *RankingHandler) HandleChoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req choiceRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxImport)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: invalid json", ErrBadRequest))
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	v, err := h.deps.Choose(r.Context(), h.cookies.get(r), req.Choice, *req.PairIndex)
	h.respond(w, v, err)
}

// HandleReset handles POST /api/ranking/reset.
func (h *RankingHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	v, err := h.deps.Reset(r.Context(), h.cookies.get(r))
	h.respond(w, v, err)
}

// HandleExport handles GET /api/ranking/export. The body is the full
// serialized session, suitable for a later import.
func (h *RankingHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, data, err := h.deps.Export(r.Context(), h.cookies.get(r))
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.cookies.set(w, id)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleImport handles POST /api/ranking/import.
func (h *RankingHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxImport))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeFailure(w, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, mbe.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: unreadable body", ErrBadRequest))
		return
	}
	v, err := h.deps.Import(r.Context(), h.cookies.get(r), payload)
	h.respond(w, v, err)
}

// HandleStandings handles GET /api/ranking/standings?limit=N.
func (h *RankingHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := standingsQuery{Limit: h.maxLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: limit must be an integer", ErrBadRequest))
			return
		}
		q.Limit = n
	}
	if err := validation.ValidateStruct(&q); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	if q.Limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, codeBadRequest,
			fmt.Errorf("%w: limit must be at most %d", ErrBadRequest, h.maxLimit))
		return
	}
	id, rows, err := h.deps.Standings(r.Context(), h.cookies.get(r), q.Limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.cookies.set(w, id)
	writeJSON(w, http.StatusOK, standingsResponse{SessionID: id, Standings: rows})
}

// HandleCatalog handles GET /api/ranking/catalog.
func (h *RankingHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Items: h.deps.Catalog()})
}

func (h *RankingHandler) respond(w http.ResponseWriter, v service.View, err error) {
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.cookies.set(w, v.SessionID)
	writeJSON(w, http.StatusOK, v)
}
