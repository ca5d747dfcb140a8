package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to the scheduler's read-only HTTP observability surface.
type Client struct {
	baseURL string
	opts    *options
	ws      *WebSocketClient
}

// New creates a new Client pointed at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL must not be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Client{baseURL: baseURL, opts: o}, nil
}

// TaskResponse mirrors internal/api/handlers.TaskResponse.
type TaskResponse struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Priority     int      `json:"priority"`
	Dependencies []string `json:"dependencies,omitempty"`
	Result       any      `json:"result,omitempty"`
	Error        string   `json:"error,omitempty"`
	WorkerID     string   `json:"worker_id,omitempty"`
}

// ListResponse mirrors internal/api/handlers.ListResponse.
type ListResponse struct {
	Tasks      []TaskResponse `json:"tasks"`
	TotalCount int            `json:"total_count"`
}

// StatusResponse mirrors the body of GET /admin/status.
type StatusResponse struct {
	Workers struct {
		Total int `json:"total"`
		Alive int `json:"alive"`
	} `json:"workers"`
	Tasks map[string]int `json:"tasks"`
}

// HealthResponse mirrors the body of GET /admin/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse mirrors internal/api/handlers.ErrorResponse.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetTask retrieves a single task snapshot by id.
func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.get(ctx, "/api/v1/tasks/"+url.PathEscape(taskID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks retrieves all task snapshots, optionally filtered by status
// ("pending", "running", "completed", "failed", "cancelled", "timeout").
func (c *Client) ListTasks(ctx context.Context, status string) (*ListResponse, error) {
	path := "/api/v1/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var out ListResponse
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status retrieves the scheduler's worker/task status report.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.get(ctx, "/admin/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health calls GET /admin/health. The server answers "healthy" whenever
// it responds at all; the result does not say whether the scheduler is
// still accepting work.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.get(ctx, "/admin/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConnectWebSocket establishes a WebSocket connection for real-time events.
func (c *Client) ConnectWebSocket(ctx context.Context) error {
	if c.ws != nil && c.ws.IsConnected() {
		return nil
	}
	c.ws = newWebSocketClient(c.baseURL, c.opts.apiKey)
	return c.ws.Connect(ctx)
}

// Events returns a channel that receives WebSocket events.
// Must call ConnectWebSocket first.
func (c *Client) Events() <-chan *Event {
	if c.ws == nil {
		ch := make(chan *Event)
		close(ch)
		return ch
	}
	return c.ws.Events()
}

// CloseWebSocket closes the WebSocket connection.
func (c *Client) CloseWebSocket() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

// SubscribeEvents subscribes to specific event types over an already
// connected WebSocket.
func (c *Client) SubscribeEvents(eventTypes ...EventType) error {
	if c.ws == nil {
		return fmt.Errorf("websocket not connected")
	}
	return c.ws.Subscribe(eventTypes...)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.opts.applyHeaders(req)

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, errResp.Message)
		}
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
