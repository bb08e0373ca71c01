package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/okian/pairwise/internal/adapters/http/api"
	"github.com/okian/pairwise/internal/adapters/repository"
	service "github.com/okian/pairwise/internal/app"
	"github.com/okian/pairwise/internal/domain/calc"
	"github.com/okian/pairwise/internal/domain/session"
	"github.com/okian/pairwise/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const testCookie = "pairwise_session"

func init() {
	_ = logger.Init()
}

// mockDependencies records the session ids and arguments it receives.
type mockDependencies struct {
	view     service.View
	err      error
	lastID   string
	choice   string
	index    int
	payload  []byte
	limit    int
	exported []byte
	rows     []service.StandingView
	panicky  bool
}

func (m *mockDependencies) result(id string) (service.View, error) {
	m.lastID = id
	if m.panicky {
		panic("boom")
	}
	if m.err != nil {
		return service.View{}, m.err
	}
	v := m.view
	if v.SessionID == "" {
		v.SessionID = "11111111-1111-4111-8111-111111111111"
	}
	return v, nil
}

func (m *mockDependencies) View(_ context.Context, id string) (service.View, error) {
	return m.result(id)
}

func (m *mockDependencies) Choose(_ context.Context, id, choice string, idx int) (service.View, error) {
	m.choice, m.index = choice, idx
	return m.result(id)
}

func (m *mockDependencies) Reset(_ context.Context, id string) (service.View, error) {
	return m.result(id)
}

func (m *mockDependencies) Export(_ context.Context, id string) (string, []byte, error) {
	v, err := m.result(id)
	if err != nil {
		return "", nil, err
	}
	return v.SessionID, m.exported, nil
}

func (m *mockDependencies) Import(_ context.Context, id string, payload []byte) (service.View, error) {
	m.payload = payload
	return m.result(id)
}

func (m *mockDependencies) Standings(_ context.Context, id string, n int) (string, []service.StandingView, error) {
	m.limit = n
	v, err := m.result(id)
	if err != nil {
		return "", nil, err
	}
	return v.SessionID, m.rows, nil
}

func (m *mockDependencies) Catalog() []service.ItemView {
	return []service.ItemView{{ID: "kokushi", Name: "国士無双"}}
}

func (m *mockDependencies) Calculate(_ context.Context, a, b float64, op string) (calc.Result, error) {
	if m.panicky {
		panic("boom")
	}
	if m.err != nil {
		return calc.Result{}, m.err
	}
	return calc.Compute(a, b, calc.Op(op))
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats(context.Context) map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies, opts api.Options) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	out := map[string]interface{}{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps, api.Options{})

		Convey("Then health endpoint serves metrics", func() {
			w := do(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And stats endpoint returns the provider's map", func() {
			w := do(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("And stats rejects other methods", func() {
			w := do(mux, "POST", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And unknown routes are not found", func() {
			w := do(mux, "GET", "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRankingSession(t *testing.T) {
	Convey("Given the ranking API", t, func() {
		deps := &mockDependencies{view: service.View{Status: session.InProgress, Total: 91}}
		mux := newMux(deps, api.Options{CookieSecure: true})

		Convey("When a session is requested without a cookie", func() {
			w := do(mux, "GET", "/api/ranking/session", "")

			Convey("Then the service receives an empty id", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastID, ShouldEqual, "")
			})

			Convey("And a browser-session cookie is set", func() {
				cookies := w.Result().Cookies()
				So(len(cookies), ShouldEqual, 1)
				So(cookies[0].Name, ShouldEqual, testCookie)
				So(cookies[0].Value, ShouldEqual, "11111111-1111-4111-8111-111111111111")
				So(cookies[0].HttpOnly, ShouldBeTrue)
				So(cookies[0].Secure, ShouldBeTrue)
				So(cookies[0].MaxAge, ShouldEqual, 0)
				So(cookies[0].SameSite, ShouldEqual, http.SameSiteLaxMode)
			})

			Convey("And the view is returned", func() {
				body := decode(w)
				So(body["status"], ShouldEqual, "IN_PROGRESS")
				So(body["total"], ShouldEqual, 91.0)
			})
		})

		Convey("When the cookie is present", func() {
			do(mux, "GET", "/api/ranking/session", "", &http.Cookie{Name: testCookie, Value: "abc"})

			Convey("Then its value is passed through", func() {
				So(deps.lastID, ShouldEqual, "abc")
			})
		})

		Convey("When the session route gets a POST", func() {
			w := do(mux, "POST", "/api/ranking/session", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRankingChoice(t *testing.T) {
	Convey("Given the choice endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps, api.Options{})

		Convey("When a valid choice is posted", func() {
			w := do(mux, "POST", "/api/ranking/choice", `{"choice":"left","pairIndex":0}`)

			Convey("Then the choice and index reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.choice, ShouldEqual, "left")
				So(deps.index, ShouldEqual, 0)
			})
		})

		Convey("When pairIndex is missing", func() {
			w := do(mux, "POST", "/api/ranking/choice", `{"choice":"left"}`)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["message"], ShouldContainSubstring, "pairIndex")
			})
		})

		Convey("When the choice is unknown", func() {
			w := do(mux, "POST", "/api/ranking/choice", `{"choice":"up","pairIndex":1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the body is not json", func() {
			w := do(mux, "POST", "/api/ranking/choice", `left`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the choice is stale", func() {
			deps.err = fmt.Errorf("%w: expected 0, current 1", service.ErrStaleChoice)
			w := do(mux, "POST", "/api/ranking/choice", `{"choice":"right","pairIndex":0}`)

			Convey("Then it conflicts", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "conflict")
			})
		})

		Convey("When the session is complete", func() {
			deps.err = session.ErrComplete
			w := do(mux, "POST", "/api/ranking/choice", `{"choice":"right","pairIndex":3}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode(w)["code"], ShouldEqual, "session_complete")
		})

		Convey("When the store is unavailable", func() {
			deps.err = fmt.Errorf("load: %w", repository.ErrUnavailable)
			w := do(mux, "POST", "/api/ranking/choice", `{"choice":"draw","pairIndex":0}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the service fails unexpectedly", func() {
			deps.err = errors.New("disk on fire")
			w := do(mux, "POST", "/api/ranking/choice", `{"choice":"a","pairIndex":0}`)

			Convey("Then a generic message is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decode(w)["message"], ShouldEqual, "internal error")
			})
		})

		Convey("When the handler panics", func() {
			deps.panicky = true
			w := do(mux, "POST", "/api/ranking/choice", `{"choice":"a","pairIndex":0}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(w)["code"], ShouldEqual, "internal_error")
		})
	})
}

func TestRankingImportExport(t *testing.T) {
	Convey("Given import and export endpoints", t, func() {
		deps := &mockDependencies{exported: []byte(`{"items":[]}`)}
		mux := newMux(deps, api.Options{MaxImportBytes: 64})

		Convey("When exporting", func() {
			w := do(mux, "GET", "/api/ranking/export", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(w.Body.String(), ShouldEqual, `{"items":[]}`)
		})

		Convey("When importing a payload", func() {
			w := do(mux, "POST", "/api/ranking/import", `{"ratings":{"kokushi":1600}}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(string(deps.payload), ShouldEqual, `{"ratings":{"kokushi":1600}}`)
		})

		Convey("When the payload is rejected", func() {
			deps.err = fmt.Errorf("%w: ratings missing", session.ErrInvalidImport)
			w := do(mux, "POST", "/api/ranking/import", `{}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["message"], ShouldContainSubstring, "ratings missing")
		})

		Convey("When the payload is too large", func() {
			w := do(mux, "POST", "/api/ranking/import", `{"ratings":{"`+strings.Repeat("x", 100)+`":1}}`)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})
	})
}

func TestRankingStandings(t *testing.T) {
	Convey("Given the standings endpoint", t, func() {
		deps := &mockDependencies{rows: []service.StandingView{{Rank: 1, ID: "kokushi", Rating: 1512, Games: 1}}}
		mux := newMux(deps, api.Options{MaxStandingsLimit: 20})

		Convey("When no limit is given", func() {
			w := do(mux, "GET", "/api/ranking/standings", "")

			Convey("Then the maximum is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.limit, ShouldEqual, 20)
				rows := decode(w)["standings"].([]interface{})
				So(len(rows), ShouldEqual, 1)
			})
		})

		Convey("When a limit is given", func() {
			do(mux, "GET", "/api/ranking/standings?limit=3", "")
			So(deps.limit, ShouldEqual, 3)
		})

		Convey("When the limit is out of range", func() {
			So(do(mux, "GET", "/api/ranking/standings?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/api/ranking/standings?limit=21", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/api/ranking/standings?limit=x", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the catalog is requested", func() {
			w := do(mux, "GET", "/api/ranking/catalog", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "kokushi")
		})
	})
}

func TestCalc(t *testing.T) {
	Convey("Given the calculator endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps, api.Options{})

		Convey("When called without parameters", func() {
			w := do(mux, "GET", "/calc", "")

			Convey("Then the page is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "電卓")
			})
		})

		Convey("When multiplying", func() {
			w := do(mux, "GET", "/calc?a=6&b=7&op=mul", "")

			Convey("Then the result and expression are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"result":42.0`)
				body := decode(w)
				So(body["ok"], ShouldEqual, true)
				So(body["expression"], ShouldEqual, "6.0 * 7.0")
			})
		})

		Convey("When dividing", func() {
			w := do(mux, "GET", "/calc?a=10&b=4&op=div", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["result"], ShouldEqual, 2.5)
			So(decode(w)["expression"], ShouldEqual, "10.0 / 4.0")
		})

		Convey("When dividing by zero", func() {
			w := do(mux, "GET", "/calc?a=1&b=0&op=div", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["ok"], ShouldEqual, false)
			So(decode(w)["error"], ShouldEqual, "division by zero")
		})

		Convey("When an operand is not a number", func() {
			w := do(mux, "GET", "/calc?a=abc&b=1&op=add", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["error"], ShouldEqual, "could not convert string to float: 'abc'")
		})

		Convey("When the operation is unsupported", func() {
			w := do(mux, "GET", "/calc?a=1&b=2&op=pow", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["error"], ShouldEqual, "unsupported operation")
		})

		Convey("When a parameter is missing", func() {
			w := do(mux, "GET", "/calc?a=1&op=add", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["error"], ShouldContainSubstring, "missing parameter b")
		})

		Convey("When the calculation panics", func() {
			deps.panicky = true
			w := do(mux, "GET", "/calc?a=1&b=2&op=add", "")

			Convey("Then a generic 500 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decode(w)["ok"], ShouldEqual, false)
				So(decode(w)["error"], ShouldEqual, "internal error")
			})
		})

		Convey("When the calculation fails unexpectedly", func() {
			deps.err = errors.New("boom")
			w := do(mux, "GET", "/calc?a=1&b=2&op=add", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(w)["error"], ShouldEqual, "internal error")
		})
	})
}

func TestCORS(t *testing.T) {
	Convey("Given a CORS wrapped mux", t, func() {
		handler := api.CORS(nil)(newMux(&mockDependencies{}, api.Options{}))

		Convey("When a cross-origin request arrives", func() {
			req := httptest.NewRequest("GET", "/calc?a=1&b=2&op=add", http.NoBody)
			req.Header.Set("Origin", "https://example.org")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			Convey("Then any origin is allowed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			})
		})
	})
}
