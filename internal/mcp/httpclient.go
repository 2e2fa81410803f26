package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/view"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the Mapty REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the tracker runs on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends body as JSON and decodes a JSON response into out when out is
// non-nil. Non-2xx responses become errors carrying the server's message.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpclient: encode body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) Workouts(ctx context.Context) ([]*models.Workout, error) {
	var ws []*models.Workout
	if err := c.do(ctx, http.MethodGet, "/api/v1/workouts", nil, &ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *HTTPClient) Workout(ctx context.Context, id uuid.UUID) (*models.Workout, error) {
	var w models.Workout
	if err := c.do(ctx, http.MethodGet, "/api/v1/workouts/"+id.String(), nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *HTTPClient) Create(ctx context.Context, at models.Coordinates, in view.FormInput) (*models.Workout, error) {
	if err := c.do(ctx, http.MethodPost, "/api/v1/map/click", at, nil); err != nil {
		return nil, err
	}
	var w models.Workout
	if err := c.do(ctx, http.MethodPost, "/api/v1/workouts", in, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *HTTPClient) Update(ctx context.Context, id uuid.UUID, in view.FormInput) (*models.Workout, error) {
	path := "/api/v1/workouts/" + id.String()
	if err := c.do(ctx, http.MethodPost, path+"/edit", nil, nil); err != nil {
		return nil, err
	}
	var w models.Workout
	if err := c.do(ctx, http.MethodPut, path, in, &w); err != nil {
		_ = c.do(ctx, http.MethodDelete, path+"/edit", nil, nil)
		return nil, err
	}
	return &w, nil
}

func (c *HTTPClient) Delete(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/workouts/"+id.String(), nil, nil)
}

func (c *HTTPClient) DeleteAll(ctx context.Context) (int, error) {
	var prompt struct {
		Token uuid.UUID `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/prompts/delete-all", nil, &prompt); err != nil {
		return 0, err
	}
	var resp struct {
		Deleted int `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/prompts/"+prompt.Token.String()+"/confirm", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

func (c *HTTPClient) Focus(ctx context.Context, id uuid.UUID) (*models.Workout, error) {
	var w models.Workout
	if err := c.do(ctx, http.MethodPost, "/api/v1/workouts/"+id.String()+"/focus", nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *HTTPClient) State(ctx context.Context) (view.State, error) {
	var st view.State
	if err := c.do(ctx, http.MethodGet, "/api/v1/state", nil, &st); err != nil {
		return view.State{}, err
	}
	return st, nil
}
