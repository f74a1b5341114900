// Package rest implements the service.Service interface over the task backend's REST API.
package rest

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

	"github.com/charmbracelet/log"
	"github.com/google/go-querystring/query"
	"google.golang.org/api/googleapi"

	"taskman/internal/logging"
	"taskman/internal/service"
)

const (
	// APITimeout is the timeout for API calls.
	APITimeout = 10 * time.Second

	tasksPath  = "/tasks"
	searchPath = "/tasks/search"
)

// Credentials is the read side of the session the client authenticates with.
type Credentials interface {
	// AccessToken returns the current bearer token, or false if there is no session.
	AccessToken() (string, bool)

	// User returns the identity behind the token.
	User() service.User
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (for testing).
// Its transport is still wrapped with the bearer transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.base = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout overrides APITimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// Client implements service.Service against the task backend.
// It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	creds   Credentials
	http    *http.Client
	base    *http.Client
	logger  *log.Logger
	timeout time.Duration
}

// New creates a client for the API rooted at baseURL, e.g.
// http://localhost:8084/task-management/api/v1.
func New(baseURL string, creds Credentials, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	if creds == nil {
		return nil, fmt.Errorf("credentials are required")
	}

	c := &Client{
		baseURL: u,
		creds:   creds,
		timeout: APITimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	c.logger = c.logger.WithPrefix("rest")
	c.http = newHTTPClient(c.base, creds, c.logger)
	return c, nil
}

// listParams are the filters of GET /tasks.
type listParams struct {
	Priority   service.Priority `url:"priority,omitempty"`
	Status     service.Status   `url:"status,omitempty"`
	PageSize   int              `url:"pageSize"`
	PageNumber int              `url:"pageNumber"`
}

// searchParams are the parameters of GET /tasks/search.
type searchParams struct {
	Search     string `url:"search"`
	PageSize   int    `url:"pageSize"`
	PageNumber int    `url:"pageNumber"`
}

// taskParams carry a task on POST and PUT. TaskID is omitted on create.
type taskParams struct {
	TaskID      service.TaskID   `url:"taskId,omitempty"`
	Title       string           `url:"title"`
	Description string           `url:"description"`
	Priority    service.Priority `url:"priority"`
	Status      service.Status   `url:"status"`
}

type deleteParams struct {
	TaskID service.TaskID `url:"taskId"`
}

// ListTasks returns one page of tasks. A non-blank search term uses the search endpoint,
// which ignores the priority and status filters.
func (c *Client) ListTasks(ctx context.Context, q service.Query) ([]service.Task, error) {
	q = q.Normalize()

	var (
		path   string
		params any
	)
	if search := strings.TrimSpace(q.Search); search != "" {
		path = searchPath
		params = searchParams{Search: search, PageSize: q.PageSize, PageNumber: q.PageNumber}
	} else {
		path = tasksPath
		params = listParams{Priority: q.Priority, Status: q.Status, PageSize: q.PageSize, PageNumber: q.PageNumber}
	}

	var tasks []service.Task
	if err := c.do(ctx, http.MethodGet, path, params, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// CreateTask creates a task and returns the ID the backend assigned.
func (c *Client) CreateTask(ctx context.Context, t service.Task) (service.TaskID, error) {
	params := taskParams{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
	}
	var id service.TaskID
	if err := c.do(ctx, http.MethodPost, tasksPath, params, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateTask replaces the task identified by t.ID and returns the stored version.
func (c *Client) UpdateTask(ctx context.Context, t service.Task) (service.Task, error) {
	params := taskParams{
		TaskID:      t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
	}
	var updated service.Task
	if err := c.do(ctx, http.MethodPut, tasksPath, params, &updated); err != nil {
		return service.Task{}, err
	}
	if updated.ID == 0 {
		updated.ID = t.ID
	}
	return updated, nil
}

// DeleteTask deletes a task. The backend answers with a plain-text message, which is dropped.
func (c *Client) DeleteTask(ctx context.Context, id service.TaskID) error {
	return c.do(ctx, http.MethodDelete, tasksPath, deleteParams{TaskID: id}, nil)
}

// User returns the identity requests are made under.
func (c *Client) User() service.User {
	return c.creds.User()
}

// do sends one request with params encoded in the query string and decodes
// a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, params any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	values, err := query.Values(params)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(method, path, 0, err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(method, path, resp.StatusCode, err)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(method, path, resp.StatusCode, err)
	}
	if err := decode(body, out); err != nil {
		return wrapError(method, path, resp.StatusCode, fmt.Errorf("invalid response body: %w", err))
	}
	return nil
}

// decode reads a JSON body. A bare number is accepted for *TaskID even when
// the backend sends it as a string.
func decode(body []byte, out any) error {
	if id, ok := out.(*service.TaskID); ok {
		s := strings.Trim(strings.TrimSpace(string(body)), `"`)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*id = service.TaskID(n)
		return nil
	}
	return json.Unmarshal(body, out)
}
