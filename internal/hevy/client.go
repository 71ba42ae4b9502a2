package hevy

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
)

const (
	defaultBaseURL = "https://api.hevyapp.com"
	requestTimeout = 10 * time.Second
)

// ErrMissingAPIKey is returned before any network I/O when the client was
// constructed without a credential. This is a server-configuration error,
// not a user-input error.
var ErrMissingAPIKey = errors.New("hevy: api key not configured")

// APIError is the normalized form of a non-2xx Hevy response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hevy api error (status %d): %s", e.Status, e.Message)
}

// API is the surface the sync and export services depend on. Tests stub it.
type API interface {
	ExerciseTemplates(ctx context.Context, page, pageSize int) (*ExerciseTemplatesPage, error)
	RoutineFolders(ctx context.Context, page, pageSize int) (*RoutineFoldersPage, error)
	Routines(ctx context.Context, page, pageSize int) (*RoutinesPage, error)
	Workouts(ctx context.Context, page, pageSize int) (*WorkoutsPage, error)
	WorkoutCount(ctx context.Context) (int, error)
	WorkoutEvents(ctx context.Context, since time.Time, page, pageSize int) (*WorkoutEventsPage, error)
	CreateRoutine(ctx context.Context, req *CreateRoutineRequest) (*Routine, error)
	UpdateRoutine(ctx context.Context, routineID string, req *CreateRoutineRequest) (*Routine, error)
}

// Client is a thin authenticated wrapper over the Hevy REST API. It injects
// the api-key header, normalizes non-2xx responses into *APIError and applies
// a fixed short timeout. Retries are the caller's responsibility.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a Hevy client. An empty baseURL selects the public API.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// ExerciseTemplates fetches one page of the exercise template library.
func (c *Client) ExerciseTemplates(ctx context.Context, page, pageSize int) (*ExerciseTemplatesPage, error) {
	var out ExerciseTemplatesPage
	if err := c.get(ctx, "/v1/exercise_templates", pageQuery(page, pageSize), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RoutineFolders fetches one page of routine folders.
func (c *Client) RoutineFolders(ctx context.Context, page, pageSize int) (*RoutineFoldersPage, error) {
	var out RoutineFoldersPage
	if err := c.get(ctx, "/v1/routine_folders", pageQuery(page, pageSize), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Routines fetches one page of stored routines.
func (c *Client) Routines(ctx context.Context, page, pageSize int) (*RoutinesPage, error) {
	var out RoutinesPage
	if err := c.get(ctx, "/v1/routines", pageQuery(page, pageSize), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Workouts fetches one page of completed workouts.
func (c *Client) Workouts(ctx context.Context, page, pageSize int) (*WorkoutsPage, error) {
	var out WorkoutsPage
	if err := c.get(ctx, "/v1/workouts", pageQuery(page, pageSize), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WorkoutCount returns the total number of workouts on the account. The
// workout sync uses it to precompute how many pages to walk.
func (c *Client) WorkoutCount(ctx context.Context) (int, error) {
	var out WorkoutCountResponse
	if err := c.get(ctx, "/v1/workouts/count", nil, &out); err != nil {
		return 0, err
	}
	return out.WorkoutCount, nil
}

// WorkoutEvents fetches one page of the update/delete event feed since the
// given timestamp. Incremental workout sync walks this instead of the full
// list.
func (c *Client) WorkoutEvents(ctx context.Context, since time.Time, page, pageSize int) (*WorkoutEventsPage, error) {
	q := pageQuery(page, pageSize)
	q.Set("since", since.UTC().Format(time.RFC3339))
	var out WorkoutEventsPage
	if err := c.get(ctx, "/v1/workouts/events", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRoutine submits a new routine to the account.
func (c *Client) CreateRoutine(ctx context.Context, req *CreateRoutineRequest) (*Routine, error) {
	var out CreateRoutineResponse
	if err := c.post(ctx, "/v1/routines", req, &out); err != nil {
		return nil, err
	}
	return &out.Routine, nil
}

// UpdateRoutine replaces an existing routine on the account.
func (c *Client) UpdateRoutine(ctx context.Context, routineID string, req *CreateRoutineRequest) (*Routine, error) {
	var out CreateRoutineResponse
	if err := c.put(ctx, "/v1/routines/"+url.PathEscape(routineID), req, &out); err != nil {
		return nil, err
	}
	return &out.Routine, nil
}

func pageQuery(page, pageSize int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	return q
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hevy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hevy decode: %w", err)
	}
	return nil
}

// newAPIError extracts a message from the error body, falling back to the
// HTTP status text.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}

	var errBody struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&errBody); err == nil {
		if errBody.Error != "" {
			apiErr.Message = errBody.Error
		} else if errBody.Message != "" {
			apiErr.Message = errBody.Message
		}
	}
	return apiErr
}
