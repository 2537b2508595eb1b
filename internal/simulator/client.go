package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/matchtrack/internal/domain/model"
)

// ErrStatus reports an unexpected response status.
var ErrStatus = errors.New("unexpected status")

// apiError is the service's error body.
type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Client calls the tracker API.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, client: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var e apiError
		_ = json.Unmarshal(data, &e)
		return fmt.Errorf("%w: %s %s: %d %s %s", ErrStatus, method, path, resp.StatusCode, e.Code, e.Message)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func trackerPath(matchID, trackerID string) string {
	return "/matches/" + url.PathEscape(matchID) + "/trackers/" + url.PathEscape(trackerID)
}

// Health checks that the service answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}

// PutRoster stores the match roster.
func (c *Client) PutRoster(ctx context.Context, matchID string, players []model.Player) error {
	return c.do(ctx, http.MethodPut, "/matches/"+url.PathEscape(matchID)+"/roster",
		map[string]any{"players": players}, nil)
}

// PutAssignment stores a tracker assignment.
func (c *Client) PutAssignment(ctx context.Context, a model.Assignment) error {
	body := map[string]any{"player_ids": a.PlayerIDs, "role": a.Role}
	if len(a.EventTypes) > 0 {
		body["event_types"] = a.EventTypes
	}
	return c.do(ctx, http.MethodPut, trackerPath(a.MatchID, a.TrackerID)+"/assignment", body, nil)
}

// Join joins a tracker to the match.
func (c *Client) Join(ctx context.Context, matchID, trackerID string) error {
	return c.do(ctx, http.MethodPost, trackerPath(matchID, trackerID)+"/join", map[string]string{}, nil)
}

// Leave removes a tracker from the match.
func (c *Client) Leave(ctx context.Context, matchID, trackerID string) error {
	return c.do(ctx, http.MethodDelete, trackerPath(matchID, trackerID), nil, nil)
}

// Possession announces a ball holder. It reports whether an event was
// inferred.
func (c *Client) Possession(ctx context.Context, matchID, trackerID, playerID string) (bool, error) {
	var res struct {
		Inferred *model.PersistedEvent `json:"inferred"`
	}
	err := c.do(ctx, http.MethodPost, trackerPath(matchID, trackerID)+"/possession",
		map[string]string{"player_id": playerID}, &res)
	return res.Inferred != nil, err
}

// Pending lists a tracker's obligations.
func (c *Client) Pending(ctx context.Context, matchID, trackerID string) ([]model.PendingEvent, error) {
	var res struct {
		Items []model.PendingEvent `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, trackerPath(matchID, trackerID)+"/pending", nil, &res)
	return res.Items, err
}

// CommitAll classifies every obligation of a tracker with label.
func (c *Client) CommitAll(ctx context.Context, matchID, trackerID, label string) (int, error) {
	var res struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodPost, trackerPath(matchID, trackerID)+"/pending/commit-all",
		map[string]string{"event_type": label}, &res)
	return res.Count, err
}

// Events lists the stored rows of a match.
func (c *Client) Events(ctx context.Context, matchID string) ([]model.PersistedEvent, error) {
	var rows []model.PersistedEvent
	err := c.do(ctx, http.MethodGet, "/matches/"+url.PathEscape(matchID)+"/events", nil, &rows)
	return rows, err
}
