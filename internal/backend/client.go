// Package backend is the typed HTTP client for the recorder backend.
// Domain conflicts (409) map to sentinel errors in internal/errs; every
// transport failure wraps errs.ErrBackendUnavailable so callers can tell
// "unreachable" apart from "offline" or "no sessions".
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raccommode/P-StreamRec/internal/errs"
	"github.com/raccommode/P-StreamRec/internal/model"
)

// Gateway is the fixed set of remote calls the sync engine issues.
// Defined here, implemented by Client; tests substitute fakes.
type Gateway interface {
	ListModels(ctx context.Context) ([]model.Model, error)
	FetchDashboard(ctx context.Context) (*model.DashboardSnapshot, error)
	FetchActiveSessions(ctx context.Context) ([]model.RecordingSession, error)
	FetchModelStatus(ctx context.Context, username string) (*model.ModelStatus, error)
	StartSession(ctx context.Context, username string) (*model.RecordingSession, error)
	StopSession(ctx context.Context, id string) error
	AddModel(ctx context.Context, req model.AddModelRequest) (*model.Model, error)
}

// Client implements Gateway over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// ListModels enumerates tracked models (GET /api/models).
func (c *Client) ListModels(ctx context.Context) ([]model.Model, error) {
	var body struct {
		Models []model.Model `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/models", &body, nil); err != nil {
		return nil, err
	}
	return body.Models, nil
}

// FetchDashboard fetches the joined models+status+sessions snapshot in a
// single round trip (GET /api/dashboard).
func (c *Client) FetchDashboard(ctx context.Context) (*model.DashboardSnapshot, error) {
	var snap model.DashboardSnapshot
	if err := c.getJSON(ctx, "/api/dashboard", &snap, nil); err != nil {
		return nil, err
	}
	return &snap, nil
}

// FetchActiveSessions returns the session list only (GET /api/status).
func (c *Client) FetchActiveSessions(ctx context.Context) ([]model.RecordingSession, error) {
	var sessions []model.RecordingSession
	if err := c.getJSON(ctx, "/api/status", &sessions, nil); err != nil {
		return nil, err
	}
	return sessions, nil
}

// FetchModelStatus probes live status for one model, bypassing any cache
// (GET /api/model/{username}/status). 404 = username not tracked.
func (c *Client) FetchModelStatus(ctx context.Context, username string) (*model.ModelStatus, error) {
	var st model.ModelStatus
	path := "/api/model/" + url.PathEscape(model.Key(username)) + "/status"
	if err := c.getJSON(ctx, path, &st, map[int]error{
		http.StatusNotFound: errs.ErrModelNotFound,
	}); err != nil {
		return nil, err
	}
	return &st, nil
}

// StartSession asks the backend to begin recording. A 409 means a session
// for that person is already running; the backend is the concurrency
// arbiter and callers treat that outcome as a no-op.
func (c *Client) StartSession(ctx context.Context, username string) (*model.RecordingSession, error) {
	username = model.Key(username)
	req := model.StartSessionRequest{
		Target:     username,
		SourceType: "chaturbate",
		Person:     username,
		Name:       username,
	}
	var sess model.RecordingSession
	if err := c.postJSON(ctx, "/api/start", req, &sess, map[int]error{
		http.StatusConflict: errs.ErrAlreadyRunning,
	}); err != nil {
		return nil, err
	}
	return &sess, nil
}

// StopSession ends a recording (POST /api/stop/{id}).
func (c *Client) StopSession(ctx context.Context, id string) error {
	var ack model.StopSessionResponse
	return c.postJSON(ctx, "/api/stop/"+url.PathEscape(id), nil, &ack, map[int]error{
		http.StatusNotFound: errs.ErrSessionNotFound,
	})
}

// AddModel registers a model (POST /api/models); 409 = duplicate username.
func (c *Client) AddModel(ctx context.Context, req model.AddModelRequest) (*model.Model, error) {
	req.Username = model.Key(req.Username)
	var m model.Model
	if err := c.postJSON(ctx, "/api/models", req, &m, map[int]error{
		http.StatusConflict: errs.ErrDuplicateModel,
	}); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any, domain map[int]error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	return c.do(req, out, domain)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any, domain map[int]error) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, domain)
}

// do executes the request and decodes the response. domain maps expected
// non-2xx status codes to sentinel errors (409 already running, duplicate).
func (c *Client) do(req *http.Request, out any, domain map[int]error) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", errs.ErrBackendUnavailable, req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("backend: decode %s: %w", req.URL.Path, err)
		}
		return nil
	default:
		if sentinel, ok := domain[resp.StatusCode]; ok {
			return sentinel
		}
		detail := readDetail(resp.Body)
		return fmt.Errorf("backend: %s %s: status %d%s", req.Method, req.URL.Path, resp.StatusCode, detail)
	}
}

func readDetail(body io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return ": " + payload.Detail
	}
	if payload.Error != "" {
		return ": " + payload.Error
	}
	return ""
}
