// Package calendar fetches commitments, pending tasks and routines from a
// remote calendar service over HTTP.
//
// Endpoints, relative to the base URL:
//
//	GET /users/{user}/commitments?from=RFC3339&to=RFC3339
//	GET /users/{user}/tasks?status=pending&limit=N
//	GET /users/{user}/routines/{morning|evening}   (404 when none)
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/dayplan/auth"
	"github.com/kilianp07/dayplan/core/logger"
	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/provider"
	infralogger "github.com/kilianp07/dayplan/infra/logger"
)

// Config configures the calendar client.
type Config struct {
	BaseURL        string    `json:"base_url"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	Auth           auth.Conf `json:"auth"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("calendar: base_url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("calendar: invalid base_url: %w", err)
	}
	return nil
}

// Client implements the commitment, task and routine providers.
type Client struct {
	baseURL string
	http    *http.Client
	auth    *auth.ClientCred
	log     logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option { return func(c *Client) { c.log = l } }

// New creates a calendar client. Requests carry a client-credentials bearer
// token when cfg.Auth has a token URL.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:     infralogger.New("calendar"),
	}
	if cfg.Auth.Enabled() {
		c.auth = auth.NewClientCred(cfg.Auth)
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Commitments returns the commitments overlapping [from, to).
func (c *Client) Commitments(ctx context.Context, userID string, from, to time.Time) ([]model.Commitment, error) {
	q := url.Values{}
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))
	var out []model.Commitment
	if _, err := c.getJSON(ctx, userPath(userID, "commitments"), q, &out); err != nil {
		return nil, fmt.Errorf("fetch commitments: %w", err)
	}
	for i, cm := range out {
		if !cm.EndTime.After(cm.StartTime) {
			return nil, fmt.Errorf("fetch commitments: %s ends before it starts", cm.ID)
		}
		out[i].StartTime = cm.StartTime.In(from.Location())
		out[i].EndTime = cm.EndTime.In(from.Location())
	}
	return out, nil
}

// PendingTasks returns up to limit pending tasks in the order served.
func (c *Client) PendingTasks(ctx context.Context, userID string, limit int) ([]model.Task, error) {
	q := url.Values{}
	q.Set("status", "pending")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []model.Task
	if _, err := c.getJSON(ctx, userPath(userID, "tasks"), q, &out); err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Routine returns the active routine for slot, or nil when the service has
// none.
func (c *Client) Routine(ctx context.Context, userID string, slot model.RoutineSlot) (*model.Routine, error) {
	var r model.Routine
	found, err := c.getJSON(ctx, userPath(userID, "routines", string(slot)), nil, &r)
	if err != nil {
		return nil, fmt.Errorf("fetch %s routine: %w", slot, err)
	}
	if !found {
		return nil, nil
	}
	return &r, nil
}

func userPath(userID string, parts ...string) string {
	p := "/users/" + url.PathEscape(userID)
	for _, s := range parts {
		p += "/" + url.PathEscape(s)
	}
	return p
}

// getJSON decodes the response body into out. A 404 reports found false.
// A 401 triggers one token refresh and retry.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) (bool, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	resp, err := c.do(ctx, u, false)
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusUnauthorized && c.auth != nil {
		_ = resp.Body.Close()
		c.log.Warnf("calendar rejected token, refreshing")
		if resp, err = c.do(ctx, u, true); err != nil {
			return false, err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	c.log.Debugf("GET %s ok", path)
	return true, nil
}

func (c *Client) do(ctx context.Context, u string, refresh bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		if refresh {
			if _, err := c.auth.ForceRefresh(ctx); err != nil {
				return nil, err
			}
		}
		if err := c.auth.SetAuthHeader(ctx, req); err != nil {
			return nil, fmt.Errorf("failed to set auth header: %w", err)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

var (
	_ provider.CommitmentProvider = (*Client)(nil)
	_ provider.TaskProvider       = (*Client)(nil)
	_ provider.RoutineProvider    = (*Client)(nil)
)
