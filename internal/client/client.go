// Package client talks to the liftlog REST API. It backs the terminal focus
// session and the remote mode of the MCP server.
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
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// ErrUnreachable wraps transport failures: the request never produced an
// HTTP response.
var ErrUnreachable = errors.New("backend unreachable")

// APIError is a non-2xx response carrying the server's error code.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Code)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client calls the REST API of a liftlog server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. A client passed to
// WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// New creates a Client targeting baseURL, e.g. "http://liftlog:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type itemsEnvelope[T any] struct {
	Items []T `json:"items"`
}

// ListWorkouts returns all workouts, newest first.
func (c *Client) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	var out itemsEnvelope[models.Workout]
	if err := c.do(ctx, http.MethodGet, "/api/workouts", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetWorkoutDetail returns the nested workout with its exercises and sets.
func (c *Client) GetWorkoutDetail(ctx context.Context, workoutID string) (*models.WorkoutDetail, error) {
	var out models.WorkoutDetail
	if err := c.do(ctx, http.MethodGet, "/api/workouts/"+url.PathEscape(workoutID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListExercises returns the exercise library.
func (c *Client) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	var out itemsEnvelope[models.Exercise]
	if err := c.do(ctx, http.MethodGet, "/api/exercises", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ListWorkoutExercises returns the composition of a workout in sort order.
func (c *Client) ListWorkoutExercises(ctx context.Context, workoutID string) ([]models.WorkoutExercise, error) {
	var out itemsEnvelope[models.WorkoutExercise]
	path := "/api/workouts/" + url.PathEscape(workoutID) + "/exercises"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// AddWorkoutExercise appends an exercise to a workout's composition.
func (c *Client) AddWorkoutExercise(ctx context.Context, workoutID, exerciseID string) error {
	path := "/api/workouts/" + url.PathEscape(workoutID) + "/exercises"
	return c.do(ctx, http.MethodPost, path, map[string]string{"exerciseId": exerciseID}, nil)
}

// RemoveWorkoutExercise removes an exercise from a workout's composition.
func (c *Client) RemoveWorkoutExercise(ctx context.Context, workoutID, exerciseID string) error {
	path := "/api/workouts/" + url.PathEscape(workoutID) + "/exercises/" + url.PathEscape(exerciseID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// AppendSet logs a new set and returns it with its durable id.
func (c *Client) AppendSet(ctx context.Context, workoutID string, in models.NewSet) (*models.Set, error) {
	var out models.Set
	path := "/api/workouts/" + url.PathEscape(workoutID) + "/sets"
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchSet sends a partial update for a set.
func (c *Client) PatchSet(ctx context.Context, setID string, patch models.SetPatch) error {
	return c.do(ctx, http.MethodPatch, "/api/sets/"+url.PathEscape(setID), patch, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w: %w", method, path, ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read body: %w: %w", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Code = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}
