// Package site serves the embedded browser pages.
package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("site serve failed")
)

// Register attaches the index and ranking pages to mux. The ranking page
// answers on /yakuman; every other path falls through to the file server.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/yakuman", NewPageHandler("yakuman.html").ServeHTTP)
	mux.Handle("/", http.FileServer(FS()))
}

// PageHandler serves one embedded page.
type PageHandler struct {
	name string
}

// NewPageHandler creates a handler for the named page under static/.
func NewPageHandler(name string) *PageHandler {
	return &PageHandler{name: name}
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	page, err := fs.ReadFile(pages, h.name)
	if err != nil {
		http.Error(w, fmt.Errorf("%w: %v", ErrServe, err).Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(page)
}
