// Package client is a Go client for the Ascend progression API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Sentinel errors matched by *Error via errors.Is.
var (
	ErrInvalid      = errors.New("invalid request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("service unavailable")
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an RFC 7807 problem returned by the service.
type Error struct {
	StatusCode int          `json:"status"`
	Type       string       `json:"type"`
	Title      string       `json:"title"`
	Detail     string       `json:"detail"`
	Errors     []FieldError `json:"errors,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ascend: %d %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("ascend: %d %s", e.StatusCode, e.Title)
}

// Is maps the status code onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return target == ErrInvalid
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusNotFound:
		return target == ErrNotFound
	case http.StatusConflict:
		return target == ErrConflict
	case http.StatusServiceUnavailable:
		return target == ErrUnavailable
	}
	return false
}

// Client talks to one Ascend service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	backoff time.Duration
	retries uint64
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	} else if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    cfg.HTTPClient,
		backoff: cfg.RetryBackoff,
		retries: uint64(cfg.MaxRetries),
	}, nil
}

// Health reports service health. It needs no API key.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health", nil, true, &h)
	return h, err
}

// Registry lists every achievement definition.
func (c *Client) Registry(ctx context.Context) ([]Achievement, error) {
	var defs []Achievement
	err := c.do(ctx, http.MethodGet, "/achievements", nil, true, &defs)
	return defs, err
}

// Profile returns userID's profile, creating it on first access.
func (c *Client) Profile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, userPath(userID, "/profile"), nil, true, &p)
	return p, err
}

// ApplyXP adds delta XP. Not retried: a lost response may still have applied.
func (c *Client) ApplyXP(ctx context.Context, userID string, delta int) (Change, error) {
	var ch Change
	err := c.do(ctx, http.MethodPost, userPath(userID, "/profile/xp"), map[string]int{"delta": delta}, false, &ch)
	return ch, err
}

// ApplyHP adds delta HP. Not retried: a lost response may still have applied.
func (c *Client) ApplyHP(ctx context.Context, userID string, delta int) (Change, error) {
	var ch Change
	err := c.do(ctx, http.MethodPost, userPath(userID, "/profile/hp"), map[string]int{"delta": delta}, false, &ch)
	return ch, err
}

// OpenApp reconciles missed days up to date (YYYY-MM-DD, empty for the
// server's today) and evaluates achievements. Safe to retry.
func (c *Client) OpenApp(ctx context.Context, userID, date string) (OpenResult, error) {
	var body any
	if date != "" {
		body = map[string]string{"date": date}
	}
	var res OpenResult
	err := c.do(ctx, http.MethodPost, userPath(userID, "/open"), body, true, &res)
	return res, err
}

// ListHabits returns userID's habits.
func (c *Client) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]Habit, error) {
	path := userPath(userID, "/habits")
	if includeArchived {
		path += "?include_archived=true"
	}
	var habits []Habit
	err := c.do(ctx, http.MethodGet, path, nil, true, &habits)
	return habits, err
}

// CreateHabit creates a habit for userID.
func (c *Client) CreateHabit(ctx context.Context, userID string, params CreateHabitParams) (Habit, error) {
	var h Habit
	err := c.do(ctx, http.MethodPost, userPath(userID, "/habits"), params, false, &h)
	return h, err
}

// ArchiveHabit archives a habit.
func (c *Client) ArchiveHabit(ctx context.Context, userID, habitID string) error {
	return c.do(ctx, http.MethodDelete, userPath(userID, "/habits/"+url.PathEscape(habitID)), nil, true, nil)
}

// SetHabitStatus records status for habitID on date (YYYY-MM-DD). An empty
// status clears the day.
func (c *Client) SetHabitStatus(ctx context.Context, userID, habitID, date, status string) (HabitStatusResult, error) {
	path := userPath(userID, "/habits/"+url.PathEscape(habitID)+"/logs/"+url.PathEscape(date))
	var res HabitStatusResult
	err := c.do(ctx, http.MethodPut, path, map[string]string{"status": status}, true, &res)
	return res, err
}

// Achievements lists every achievement with userID's unlock state.
func (c *Client) Achievements(ctx context.Context, userID string) ([]AchievementStatus, error) {
	var statuses []AchievementStatus
	err := c.do(ctx, http.MethodGet, userPath(userID, "/achievements"), nil, true, &statuses)
	return statuses, err
}

// Events lists userID's events after the event id afterID (empty for the
// oldest). A limit of 0 uses the server default.
func (c *Client) Events(ctx context.Context, userID, afterID string, limit int) ([]Event, error) {
	q := url.Values{}
	if afterID != "" {
		q.Set("after", afterID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := userPath(userID, "/events")
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var events []Event
	err := c.do(ctx, http.MethodGet, path, nil, true, &events)
	return events, err
}

func userPath(userID, suffix string) string {
	return "/users/" + url.PathEscape(userID) + suffix
}

// do sends an authenticated request to /api/v1+path and decodes the JSON
// response into out. Idempotent requests are retried on transport errors
// and 503 responses.
func (c *Client) do(ctx context.Context, method, path string, body any, idempotent bool, out any) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	retries := c.retries
	if !idempotent {
		retries = 0
	}
	backoff := retry.WithMaxRetries(retries, retry.NewConstant(c.backoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.send(ctx, method, path, data, out)
		if err == nil {
			return nil
		}
		var perr *Error
		if errors.As(err, &perr) {
			if perr.StatusCode == http.StatusServiceUnavailable {
				return retry.RetryableError(err)
			}
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		return retry.RetryableError(err)
	})
}

func (c *Client) send(ctx context.Context, method, path string, data []byte, out any) error {
	var reqBody io.Reader
	if data != nil {
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	perr := &Error{}
	if err := json.NewDecoder(resp.Body).Decode(perr); err != nil || perr.Title == "" {
		perr.Title = http.StatusText(resp.StatusCode)
	}
	perr.StatusCode = resp.StatusCode
	return perr
}
