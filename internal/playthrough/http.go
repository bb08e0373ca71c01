package playthrough

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/goccy/go-json"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// HTTPClient is one browser: it keeps its own cookie jar, so each client
// owns exactly one ranking session.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout, Jar: jar},
		baseURL: baseURL,
	}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) ([]byte, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return data, nil
}

// Health checks that the service answers /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

// Session returns the current view, creating the session on first use.
func (c *HTTPClient) Session(ctx context.Context) (View, error) {
	var v View
	_, err := c.do(ctx, http.MethodGet, "/api/ranking/session", nil, &v)
	return v, err
}

// Choose answers the pair at index.
func (c *HTTPClient) Choose(ctx context.Context, choice string, index int) (View, error) {
	var v View
	body := map[string]interface{}{"choice": choice, "pairIndex": index}
	_, err := c.do(ctx, http.MethodPost, "/api/ranking/choice", body, &v)
	return v, err
}

// Export returns the raw serialized session.
func (c *HTTPClient) Export(ctx context.Context) ([]byte, State, error) {
	var st State
	data, err := c.do(ctx, http.MethodGet, "/api/ranking/export", nil, &st)
	return data, st, err
}

// Standings returns the top n rows.
func (c *HTTPClient) Standings(ctx context.Context, n int) ([]Standing, error) {
	var out struct {
		Standings []Standing `json:"standings"`
	}
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/ranking/standings?limit=%d", n), nil, &out)
	return out.Standings, err
}
