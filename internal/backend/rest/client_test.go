package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"taskman/internal/service"
)

// fakeCreds is a mutable credential source.
type fakeCreds struct {
	mu    sync.Mutex
	token string
}

func (f *fakeCreds) set(tok string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = tok
}

func (f *fakeCreds) AccessToken() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.token != ""
}

func (f *fakeCreds) User() service.User {
	return service.User{Username: "alice"}
}

// recorded is one request seen by the test server.
type recorded struct {
	method string
	path   string
	query  url.Values
	auth   string
	reqID  string
}

type testServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{status: http.StatusOK, body: "[]"}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.requests = append(ts.requests, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			auth:   r.Header.Get("Authorization"),
			reqID:  r.Header.Get(RequestIDHeader),
		})
		status, body := ts.status, ts.body
		ts.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) respond(status int, body string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.status, ts.body = status, body
}

func (ts *testServer) last(t *testing.T) recorded {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NotEmpty(t, ts.requests)
	return ts.requests[len(ts.requests)-1]
}

func newTestClient(t *testing.T, ts *testServer, creds *fakeCreds) *Client {
	t.Helper()
	c, err := New(ts.URL+"/task-management/api/v1/", creds, WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("ftp://example.com", &fakeCreds{})
	assert.Error(t, err)
	_, err = New("http://example.com", nil)
	assert.Error(t, err)
}

func TestListTasks_FilteredListing(t *testing.T) {
	ts := newTestServer(t)
	ts.respond(http.StatusOK, `[{"id":7,"title":"Write report","description":"Q3","priority":"HIGH","status":"PENDING"}]`)
	c := newTestClient(t, ts, &fakeCreds{token: "tok"})

	tasks, err := c.ListTasks(context.Background(), service.Query{
		Priority: service.PriorityHigh, PageSize: 3, PageNumber: 2,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, service.Task{ID: 7, Title: "Write report", Description: "Q3", Priority: service.PriorityHigh, Status: service.StatusPending}, tasks[0])

	req := ts.last(t)
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/task-management/api/v1/tasks", req.path)
	assert.Equal(t, "HIGH", req.query.Get("priority"))
	assert.False(t, req.query.Has("status"))
	assert.False(t, req.query.Has("search"))
	assert.Equal(t, "3", req.query.Get("pageSize"))
	assert.Equal(t, "2", req.query.Get("pageNumber"))
	assert.Equal(t, "Bearer tok", req.auth)
	assert.NotEmpty(t, req.reqID)
}

func TestListTasks_SearchRoutesToSearchEndpoint(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, &fakeCreds{token: "tok"})

	tasks, err := c.ListTasks(context.Background(), service.Query{
		Search: "  report ", Status: service.StatusPending, PageSize: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)

	req := ts.last(t)
	assert.Equal(t, "/task-management/api/v1/tasks/search", req.path)
	assert.Equal(t, "report", req.query.Get("search"))
	assert.False(t, req.query.Has("status"))
	assert.Equal(t, "5", req.query.Get("pageSize"))
	assert.Equal(t, "0", req.query.Get("pageNumber"))
}

func TestListTasks_BlankSearchUsesListing(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, &fakeCreds{token: "tok"})

	_, err := c.ListTasks(context.Background(), service.Query{Search: "   "})
	require.NoError(t, err)

	req := ts.last(t)
	assert.Equal(t, "/task-management/api/v1/tasks", req.path)
	assert.Equal(t, "10", req.query.Get("pageSize"))
}

func TestCreateTask_SendsParamsAndReturnsID(t *testing.T) {
	ts := newTestServer(t)
	ts.respond(http.StatusOK, `42`)
	c := newTestClient(t, ts, &fakeCreds{token: "tok"})

	id, err := c.CreateTask(context.Background(), service.Task{
		ID: 99, Title: "Buy milk", Description: "2 liters", Priority: service.PriorityLow, Status: service.StatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, service.TaskID(42), id)

	req := ts.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "Buy milk", req.query.Get("title"))
	assert.Equal(t, "2 liters", req.query.Get("description"))
	assert.Equal(t, "LOW", req.query.Get("priority"))
	assert.Equal(t, "PENDING", req.query.Get("status"))
	assert.False(t, req.query.Has("taskId"))
}

func TestUpdateTask_SendsEveryField(t *testing.T) {
	ts := newTestServer(t)
	ts.respond(http.StatusOK, `{"id":7,"title":"T","description":"D","priority":"MEDIUM","status":"COMPLETED"}`)
	c := newTestClient(t, ts, &fakeCreds{token: "tok"})

	got, err := c.UpdateTask(context.Background(), service.Task{
		ID: 7, Title: "T", Description: "D", Priority: service.PriorityMedium, Status: service.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, service.TaskID(7), got.ID)
	assert.Equal(t, service.StatusCompleted, got.Status)

	req := ts.last(t)
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "7", req.query.Get("taskId"))
	assert.Equal(t, "T", req.query.Get("title"))
	assert.Equal(t, "D", req.query.Get("description"))
	assert.Equal(t, "MEDIUM", req.query.Get("priority"))
	assert.Equal(t, "COMPLETED", req.query.Get("status"))
}

func TestDeleteTask_AcceptsTextBody(t *testing.T) {
	ts := newTestServer(t)
	ts.respond(http.StatusOK, `Task deleted`)
	c := newTestClient(t, ts, &fakeCreds{token: "tok"})

	require.NoError(t, c.DeleteTask(context.Background(), 7))

	req := ts.last(t)
	assert.Equal(t, http.MethodDelete, req.method)
	assert.Equal(t, "7", req.query.Get("taskId"))
}

func TestTransport_ReadsTokenPerRequest(t *testing.T) {
	ts := newTestServer(t)
	creds := &fakeCreds{token: "first"}
	c := newTestClient(t, ts, creds)

	_, err := c.ListTasks(context.Background(), service.Query{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer first", ts.last(t).auth)

	creds.set("second")
	_, err = c.ListTasks(context.Background(), service.Query{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer second", ts.last(t).auth)

	creds.set("")
	_, err = c.ListTasks(context.Background(), service.Query{})
	require.NoError(t, err)
	assert.Empty(t, ts.last(t).auth)
}

func TestTransport_UniqueRequestIDs(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, &fakeCreds{token: "tok"})

	_, _ = c.ListTasks(context.Background(), service.Query{})
	first := ts.last(t).reqID
	_, _ = c.ListTasks(context.Background(), service.Query{})
	assert.NotEqual(t, first, ts.last(t).reqID)
}

func TestErrors_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantMsg string
	}{
		{"unauthorized", http.StatusUnauthorized, "token expired or revoked"},
		{"forbidden", http.StatusForbidden, "token expired or revoked"},
		{"not found", http.StatusNotFound, "not found"},
		{"server error", http.StatusInternalServerError, "500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.respond(tt.status, `{"error":"nope"}`)
			c := newTestClient(t, ts, &fakeCreds{token: "tok"})

			_, err := c.ListTasks(context.Background(), service.Query{})
			require.Error(t, err)

			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, tt.status == http.StatusUnauthorized || tt.status == http.StatusForbidden, reqErr.Unauthorized())

			var gerr *googleapi.Error
			assert.True(t, errors.As(err, &gerr))
		})
	}
}

func TestErrors_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, &fakeCreds{token: "tok"}, WithHTTPClient(srv.Client()), WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	err = c.DeleteTask(context.Background(), 1)
	require.Error(t, err)
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.True(t, reqErr.Timeout())
	assert.Equal(t, "request timed out", err.Error())
}

func TestErrors_InvalidBody(t *testing.T) {
	ts := newTestServer(t)
	ts.respond(http.StatusOK, `not json`)
	c := newTestClient(t, ts, &fakeCreds{token: "tok"})

	_, err := c.ListTasks(context.Background(), service.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid response body")
	assert.NotContains(t, err.Error(), "200 OK")
	assert.True(t, strings.HasPrefix(err.Error(), "GET /tasks: "), err.Error())

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusOK, reqErr.StatusCode)
	assert.False(t, reqErr.Unauthorized())
}

func TestUser_ComesFromCredentials(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, &fakeCreds{})
	assert.Equal(t, "alice", c.User().Username)
}
