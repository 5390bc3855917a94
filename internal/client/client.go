// Package client talks to the setlog REST API. It provides every collaborator
// the logging engine needs, plus the read side used by the MCP server.
package client

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

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/workoutlog"
)

// Options tunes the client. Zero values get defaults.
type Options struct {
	Timeout time.Duration
	// Retries is the number of attempts for writes.
	Retries int
	// Backoff is the wait before the second attempt; it doubles after that.
	Backoff    time.Duration
	HTTPClient *http.Client
}

// Client calls the setlog REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
}

// New creates a client for the server at baseURL.
func New(baseURL, apiKey string, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries < 1 {
		opts.Retries = 3
	}
	if opts.Backoff == 0 {
		opts.Backoff = time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: hc,
		retries:    opts.Retries,
		backoff:    opts.Backoff,
	}
}

// StatusError is a non-2xx response. A 404 matches models.ErrNotFound.
type StatusError struct {
	Code int
	Path string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %s returned %d: %s", e.Path, e.Code, strings.TrimSpace(e.Body))
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return models.ErrNotFound
	}
	return nil
}

// retryable reports whether a failed attempt may succeed if repeated.
func retryable(err error) bool {
	se, ok := err.(*StatusError)
	if !ok {
		return true
	}
	return se.Code >= 500 || se.Code == http.StatusTooManyRequests
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body []byte, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Path: path, Body: string(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("client: decode %s: %w", path, err)
		}
	}
	return nil
}

// write sends a request with retries and exponential backoff. Upserts are
// keyed by natural key, so repeating one is harmless.
func (c *Client) write(ctx context.Context, method, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("client: marshal: %w", err)
	}

	var lastErr error
	for attempt := range c.retries {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return fmt.Errorf("client: %w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(wait):
			}
		}

		lastErr = c.do(ctx, method, path, nil, data, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", c.retries, lastErr)
}

// GetSession fetches a session with its exercises and participants.
func (c *Client) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var s models.Session
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+id.String(), nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// QuerySessionSetLogs fetches the persisted sets of a session.
func (c *Client) QuerySessionSetLogs(ctx context.Context, sessionID uuid.UUID) ([]models.SetLogEntry, error) {
	var logs []models.SetLogEntry
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+sessionID.String()+"/sets", nil, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// QueryHistory fetches a participant's prior sets for a catalog exercise.
func (c *Client) QueryHistory(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error) {
	params := url.Values{
		"participant_id": {participantID.String()},
		"exercise_id":    {exerciseID.String()},
	}
	var records []models.HistoryRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/history", params, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// LoadSession is GetSession under the engine's collaborator name.
func (c *Client) LoadSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return c.GetSession(ctx, id)
}

// LoadSetLogs is QuerySessionSetLogs under the engine's collaborator name.
func (c *Client) LoadSetLogs(ctx context.Context, sessionID uuid.UUID) ([]models.SetLogEntry, error) {
	return c.QuerySessionSetLogs(ctx, sessionID)
}

// FetchHistory is QueryHistory under the engine's collaborator name.
func (c *Client) FetchHistory(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error) {
	return c.QueryHistory(ctx, participantID, exerciseID)
}

type saveResponse struct {
	Saved int `json:"saved"`
}

// SaveSet upserts one set.
func (c *Client) SaveSet(ctx context.Context, e models.SetLogEntry) error {
	return c.write(ctx, http.MethodPut, "/api/v1/sets", e, nil)
}

// SaveSets upserts a batch of sets in one request.
func (c *Client) SaveSets(ctx context.Context, entries []models.SetLogEntry) error {
	var resp saveResponse
	if err := c.write(ctx, http.MethodPost, "/api/v1/sets/bulk", map[string]any{"entries": entries}, &resp); err != nil {
		return err
	}
	if resp.Saved != len(entries) {
		return fmt.Errorf("client: bulk save stored %d of %d sets", resp.Saved, len(entries))
	}
	return nil
}

// FinishSession records the session's end time.
func (c *Client) FinishSession(ctx context.Context, sessionID uuid.UUID, endTime time.Time) error {
	return c.write(ctx, http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/finish",
		map[string]time.Time{"end_time": endTime}, nil)
}

// Deps wires every engine collaborator to the API.
func (c *Client) Deps() workoutlog.Deps {
	return workoutlog.Deps{Sessions: c, Drafts: c, History: c, Sets: c, Bulk: c, Finalizer: c}
}
