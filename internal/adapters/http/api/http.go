// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	service "github.com/okian/pairwise/internal/app"
	"github.com/okian/pairwise/internal/domain/calc"
)

// RankingDependencies is what the ranking handlers need from the service.
type RankingDependencies interface {
	View(ctx context.Context, id string) (service.View, error)
	Choose(ctx context.Context, id, choice string, expectedIndex int) (service.View, error)
	Reset(ctx context.Context, id string) (service.View, error)
	Export(ctx context.Context, id string) (string, []byte, error)
	Import(ctx context.Context, id string, payload []byte) (service.View, error)
	Standings(ctx context.Context, id string, n int) (string, []service.StandingView, error)
	Catalog() []service.ItemView
}

// CalcDependencies performs calculator operations.
type CalcDependencies interface {
	Calculate(ctx context.Context, a, b float64, op string) (calc.Result, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RankingDependencies
	CalcDependencies
}

// Options tunes the HTTP layer.
type Options struct {
	CookieName        string
	CookieSecure      bool
	MaxStandingsLimit int
	MaxImportBytes    int64
}

const (
	defaultCookieName     = "pairwise_session"
	defaultStandingsLimit = 100
	defaultImportBytes    = 1 << 20
)

func (o Options) withDefaults() Options {
	if o.CookieName == "" {
		o.CookieName = defaultCookieName
	}
	if o.MaxStandingsLimit <= 0 {
		o.MaxStandingsLimit = defaultStandingsLimit
	}
	if o.MaxImportBytes <= 0 {
		o.MaxImportBytes = defaultImportBytes
	}
	return o
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	rankingHandler *RankingHandler
	calcHandler    *CalcHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts Options) *Server {
	opts = opts.withDefaults()
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		rankingHandler: NewRankingHandler(deps, opts),
		calcHandler:    NewCalcHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/calc", MetricsMiddleware(s.calcHandler.HandleCalc, "calc"))

	r := s.rankingHandler
	mux.HandleFunc("/api/ranking/session", MetricsMiddleware(RecoverMiddleware(r.HandleSession), "ranking_session"))
	mux.HandleFunc("/api/ranking/choice", MetricsMiddleware(RecoverMiddleware(r.HandleChoice), "ranking_choice"))
	mux.HandleFunc("/api/ranking/reset", MetricsMiddleware(RecoverMiddleware(r.HandleReset), "ranking_reset"))
	mux.HandleFunc("/api/ranking/export", MetricsMiddleware(RecoverMiddleware(r.HandleExport), "ranking_export"))
	mux.HandleFunc("/api/ranking/import", MetricsMiddleware(RecoverMiddleware(r.HandleImport), "ranking_import"))
	mux.HandleFunc("/api/ranking/standings", MetricsMiddleware(RecoverMiddleware(r.HandleStandings), "ranking_standings"))
	mux.HandleFunc("/api/ranking/catalog", MetricsMiddleware(RecoverMiddleware(r.HandleCatalog), "ranking_catalog"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes the matching error body.
func writeFailure(w http.ResponseWriter, err error) {
	status, code, msg := classify(err)
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
