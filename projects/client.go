// Package projects is the typed client for the WorkNest project service:
// project CRUD, stage (kanban column) management, task management, and the
// admin user listing. Every call is authenticated with the bearer token
// supplied by the session manager.
package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/worknest/worknest-go/apierror"
	"github.com/worknest/worknest-go/users"
)

const maxResponseSize = 4 << 20

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource yields the current access token. The session manager satisfies
// it; an authorization-class rejection here surfaces as
// apierror.KindUnauthorized for the caller to recover from.
type TokenSource interface {
	AccessToken() string
}

// StaticToken is a fixed-token TokenSource for tests and scripts.
type StaticToken string

func (s StaticToken) AccessToken() string { return string(s) }

// Client calls the project service.
type Client struct {
	baseURL    string
	httpClient Doer
	tokens     TokenSource
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.httpClient = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a project service client.
func NewClient(baseURL string, tokens TokenSource, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("[projects.NewClient] baseURL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("[projects.NewClient] token source is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		tokens:     tokens,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// ListProjects returns one page of the projects visible to the caller.
func (c *Client) ListProjects(ctx context.Context, pr PageRequest) (*Page[Project], error) {
	var page Page[Project]
	if err := c.do(ctx, http.MethodGet, "/projects"+pageQuery(pr, nil), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProject fetches a single project.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject creates a project. Requires the manager role or above.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodPost, "/projects", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject applies a partial update to a project.
func (c *Client) UpdateProject(ctx context.Context, projectID string, req UpdateProjectRequest) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodPatch, "/projects/"+url.PathEscape(projectID), req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject deletes a project and everything in it.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+url.PathEscape(projectID), nil, nil)
}

// ListStages returns a project's kanban columns ordered by position.
func (c *Client) ListStages(ctx context.Context, projectID string) ([]Stage, error) {
	var stages []Stage
	path := "/projects/" + url.PathEscape(projectID) + "/stages"
	if err := c.do(ctx, http.MethodGet, path, nil, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// CreateStage appends a new column to a project's board.
func (c *Client) CreateStage(ctx context.Context, projectID string, req CreateStageRequest) (*Stage, error) {
	var s Stage
	path := "/projects/" + url.PathEscape(projectID) + "/stages"
	if err := c.do(ctx, http.MethodPost, path, req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RenameStage changes a column's name.
func (c *Client) RenameStage(ctx context.Context, stageID, name string) (*Stage, error) {
	var s Stage
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPatch, "/stages/"+url.PathEscape(stageID), body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MoveStage reorders a column to the given zero-based position.
func (c *Client) MoveStage(ctx context.Context, stageID string, position int) (*Stage, error) {
	var s Stage
	body := map[string]int{"position": position}
	if err := c.do(ctx, http.MethodPatch, "/stages/"+url.PathEscape(stageID)+"/position", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteStage removes a column. The server rejects deleting a column that
// still holds tasks.
func (c *Client) DeleteStage(ctx context.Context, stageID string) error {
	return c.do(ctx, http.MethodDelete, "/stages/"+url.PathEscape(stageID), nil, nil)
}

// ListTasks returns one page of a project's tasks, optionally filtered by
// stage or assignee.
func (c *Client) ListTasks(ctx context.Context, projectID string, filter TaskFilter, pr PageRequest) (*Page[Task], error) {
	extra := url.Values{}
	if filter.StageID != "" {
		extra.Set("stageId", filter.StageID)
	}
	if filter.AssigneeID != "" {
		extra.Set("assigneeId", filter.AssigneeID)
	}
	var page Page[Task]
	path := "/projects/" + url.PathEscape(projectID) + "/tasks" + pageQuery(pr, extra)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTask fetches a single task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a task in the request's stage.
func (c *Client) CreateTask(ctx context.Context, projectID string, req CreateTaskRequest) (*Task, error) {
	var t Task
	path := "/projects/" + url.PathEscape(projectID) + "/tasks"
	if err := c.do(ctx, http.MethodPost, path, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, taskID string, req UpdateTaskRequest) (*Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(taskID), req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// MoveTask moves a task to another stage.
func (c *Client) MoveTask(ctx context.Context, taskID, stageID string) (*Task, error) {
	var t Task
	body := map[string]string{"stageId": stageID}
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(taskID)+"/stage", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(taskID), nil, nil)
}

// ListUsers returns one page of all accounts. Admin only.
func (c *Client) ListUsers(ctx context.Context, pr PageRequest) (*Page[users.User], error) {
	var page Page[users.User]
	if err := c.do(ctx, http.MethodGet, "/users"+pageQuery(pr, nil), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SetUserRole changes an account's role. Admin only.
func (c *Client) SetUserRole(ctx context.Context, userID string, role users.RoleType) (*users.User, error) {
	if !users.ValidRole(role) {
		return nil, fmt.Errorf("[projects.SetUserRole] unknown role %q", role)
	}
	var u users.User
	body := map[string]users.RoleType{"role": role}
	if err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID)+"/role", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes an account. Admin only.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), nil, nil)
}

func pageQuery(pr PageRequest, extra url.Values) string {
	pr = pr.Normalize()
	q := url.Values{}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("page", strconv.Itoa(pr.Page))
	q.Set("size", strconv.Itoa(pr.Size))
	return "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[projects.Client] marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("[projects.Client] build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierror.Transport(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return apierror.Transport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apierror.FromResponse(resp.StatusCode, b)
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("kind", apiErr.Kind.String()).
			Msg("project request rejected")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("[projects.Client] decode response: %w", err)
	}
	return nil
}
