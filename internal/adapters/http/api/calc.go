// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"io/fs"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/pairwise/internal/domain/calc"
	"github.com/okian/pairwise/internal/validation"
)

// CalcHandler serves the calculator page and its computations.
type CalcHandler struct {
	deps CalcDependencies
}

// NewCalcHandler creates a new calculator handler.
func NewCalcHandler(deps CalcDependencies) *CalcHandler {
	return &CalcHandler{deps: deps}
}

type calcQuery struct {
	A  string `query:"a" validate:"required"`
	B  string `query:"b" validate:"required"`
	Op string `query:"op" validate:"required"`
}

// calcResponse keeps the calculator's own body shape. Result is written
// with the same repr as the expression so 42 reads as 42.0.
type calcResponse struct {
	OK         bool        `json:"ok"`
	Result     json.Number `json:"result,omitempty"`
	Expression string      `json:"expression,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// HandleCalc handles /calc. A GET without query parameters returns the
// calculator page; anything else is a computation over a, b and op.
func (h *CalcHandler) HandleCalc(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logPanic(r, rec)
			writeJSON(w, http.StatusInternalServerError, calcResponse{Error: internalMessage})
		}
	}()

	q := r.URL.Query()
	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && len(q) == 0 {
		h.servePage(w, r)
		return
	}

	in := calcQuery{A: q.Get("a"), B: q.Get("b"), Op: q.Get("op")}
	res, err := h.compute(r, in)
	if err != nil {
		if isCalcInputError(err) {
			writeJSON(w, http.StatusBadRequest, calcResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, calcResponse{Error: internalMessage})
		return
	}
	writeJSON(w, http.StatusOK, calcResponse{
		OK:         true,
		Result:     json.Number(calc.FormatFloat(res.Value)),
		Expression: res.Expression,
	})
}

func (h *CalcHandler) compute(r *http.Request, in calcQuery) (calc.Result, error) {
	if err := validation.ValidateStruct(&in); err != nil {
		return calc.Result{}, err
	}
	a, err := calc.ParseOperand(in.A)
	if err != nil {
		return calc.Result{}, err
	}
	b, err := calc.ParseOperand(in.B)
	if err != nil {
		return calc.Result{}, err
	}
	return h.deps.Calculate(r.Context(), a, b, in.Op)
}

func (h *CalcHandler) servePage(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(pagesFS, "calc.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, fmt.Errorf("%w: %v", ErrServe, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(page)
}
