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

	"project-planner/logging"
	"project-planner/models"
	"project-planner/services"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrUnauthorized is matched by every 401 response. Stored credentials are
// already cleared when it is returned.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response carrying the server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Message is the text shown to the user for err.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type AuthResult struct {
	User  models.UserSummary `json:"user"`
	Token string             `json:"token"`
}

// DeleteProjectResult mirrors the project delete response.
type DeleteProjectResult struct {
	Message      string `json:"message"`
	DeletedTasks int64  `json:"deletedTasks"`
}

// Client is a typed client for the planner REST API.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialStore
	breaker *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New returns a client for baseURL, e.g. http://localhost:5000/api.
func New(baseURL string, creds CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		creds:   creds,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "planner-api",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		// 4xx answers mean the server is healthy
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			return err == nil || (errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Register(ctx context.Context, in services.RegisterInput) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return nil, err
	}
	return &out, c.saveCredentials(&out)
}

func (c *Client) Login(ctx context.Context, in services.LoginInput) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return nil, err
	}
	return &out, c.saveCredentials(&out)
}

// Logout only forgets the token; the server keeps no sessions.
func (c *Client) Logout() error {
	return c.creds.Clear()
}

func (c *Client) Me(ctx context.Context) (*models.UserSummary, error) {
	var out struct {
		User models.UserSummary `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]models.ProjectView, error) {
	var out []models.ProjectView
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, id primitive.ObjectID) (*models.ProjectView, error) {
	var out models.ProjectView
	if err := c.do(ctx, http.MethodGet, "/projects/"+id.Hex(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProject(ctx context.Context, in services.CreateProjectInput) (*models.ProjectView, error) {
	var out models.ProjectView
	if err := c.do(ctx, http.MethodPost, "/projects", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, id primitive.ObjectID, in services.UpdateProjectInput) (*models.ProjectView, error) {
	var out models.ProjectView
	if err := c.do(ctx, http.MethodPatch, "/projects/"+id.Hex(), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProject(ctx context.Context, id primitive.ObjectID) (*DeleteProjectResult, error) {
	var out DeleteProjectResult
	if err := c.do(ctx, http.MethodDelete, "/projects/"+id.Hex(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ProjectTasks(ctx context.Context, id primitive.ObjectID) ([]models.TaskView, error) {
	var out []models.TaskView
	if err := c.do(ctx, http.MethodGet, "/projects/"+id.Hex()+"/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListTasks(ctx context.Context, q services.TaskQuery) ([]models.TaskView, error) {
	params := url.Values{}
	for key, value := range map[string]string{
		"projectId": q.ProjectID,
		"status":    q.Status,
		"startDate": q.StartDate,
		"endDate":   q.EndDate,
	} {
		if value != "" {
			params.Set(key, value)
		}
	}
	path := "/tasks"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out []models.TaskView
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, id primitive.ObjectID) (*models.TaskView, error) {
	var out models.TaskView
	if err := c.do(ctx, http.MethodGet, "/tasks/"+id.Hex(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, in services.CreateTaskInput) (*models.TaskView, error) {
	var out models.TaskView
	if err := c.do(ctx, http.MethodPost, "/tasks", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, id primitive.ObjectID, in services.UpdateTaskInput) (*models.TaskView, error) {
	var out models.TaskView
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+id.Hex(), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id primitive.ObjectID) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+id.Hex(), nil, nil)
}

func (c *Client) BulkUpdateTasks(ctx context.Context, ids []primitive.ObjectID, update services.TaskFields) (int64, error) {
	var out struct {
		ModifiedCount int64 `json:"modifiedCount"`
	}
	err := c.do(ctx, http.MethodPatch, "/tasks/bulk", services.BulkUpdateInput{IDs: hexIDs(ids), Update: update}, &out)
	return out.ModifiedCount, err
}

func (c *Client) BulkDeleteTasks(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	var out struct {
		ModifiedCount int64 `json:"modifiedCount"`
	}
	err := c.do(ctx, http.MethodDelete, "/tasks/bulk", services.BulkDeleteInput{IDs: hexIDs(ids)}, &out)
	return out.ModifiedCount, err
}

func (c *Client) saveCredentials(res *AuthResult) error {
	return c.creds.Save(&Credentials{
		Token:    res.Token,
		UserID:   res.User.ID.Hex(),
		Email:    res.User.Email,
		FullName: res.User.FullName,
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do sends one request through the breaker and decodes the data field into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	var token string
	if creds, err := c.creds.Load(); err != nil {
		return fmt.Errorf("load credentials: %w", err)
	} else if creds != nil {
		token = creds.Token
	}

	raw, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			if resp.StatusCode >= http.StatusBadRequest {
				return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
			}
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if resp.StatusCode >= http.StatusBadRequest || !env.Success {
			return nil, &APIError{Status: resp.StatusCode, Message: env.Error}
		}
		return env.Data, nil
	})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			if clearErr := c.creds.Clear(); clearErr != nil {
				logging.Logger.Warnf("Event ID: CREDENTIALS_CLEAR_FAILED, Description: %v", clearErr)
			}
		}
		return err
	}

	if out == nil {
		return nil
	}
	data, _ := raw.(json.RawMessage)
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
