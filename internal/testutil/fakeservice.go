// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"taskman/internal/service"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("not found")

// FakeService is an in-memory implementation of service.Service for testing.
// Listing sorts by ID and pages like the backend.
type FakeService struct {
	mu     sync.Mutex
	tasks  map[service.TaskID]service.Task
	nextID service.TaskID
	user   service.User

	// Error injection for testing
	ListTasksErr  error
	CreateTaskErr error
	UpdateTaskErr error
	DeleteTaskErr error

	// ListHook, if set, runs before each ListTasks and may block.
	ListHook func(ctx context.Context, q service.Query)

	// Call log
	Queries []service.Query
	Creates []service.Task
	Updates []service.Task
	Deletes []service.TaskID
}

// NewFakeService creates an empty FakeService for user "alice".
func NewFakeService() *FakeService {
	return &FakeService{
		tasks:  make(map[service.TaskID]service.Task),
		nextID: 1,
		user:   service.User{Username: "alice", Email: "alice@example.com"},
	}
}

// SetUser sets the identity returned by User.
func (f *FakeService) SetUser(u service.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = u
}

// AddTask stores a task and returns its ID. Missing enums default to LOW/PENDING.
func (f *FakeService) AddTask(title string, p service.Priority, s service.Status) service.TaskID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(service.Task{Title: title, Description: title, Priority: p, Status: s})
}

func (f *FakeService) insertLocked(t service.Task) service.TaskID {
	if t.Priority == "" {
		t.Priority = service.PriorityLow
	}
	if t.Status == "" {
		t.Status = service.StatusPending
	}
	t.ID = f.nextID
	f.nextID++
	f.tasks[t.ID] = t
	return t.ID
}

// Task returns a stored task.
func (f *FakeService) Task(id service.TaskID) (service.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t, ok
}

// ListCalls returns how many times ListTasks was called.
func (f *FakeService) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Queries)
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, q service.Query) ([]service.Task, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, q)
	hook := f.ListHook
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, q)
	}
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	q = q.Normalize()
	search := strings.ToLower(strings.TrimSpace(q.Search))

	var matches []service.Task
	for _, t := range f.tasks {
		if search != "" {
			if !strings.Contains(strings.ToLower(t.Title), search) &&
				!strings.Contains(strings.ToLower(t.Description), search) {
				continue
			}
		} else {
			if q.Priority != "" && t.Priority != q.Priority {
				continue
			}
			if q.Status != "" && t.Status != q.Status {
				continue
			}
		}
		matches = append(matches, t)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	start := q.PageNumber * q.PageSize
	if start >= len(matches) {
		return []service.Task{}, nil
	}
	end := start + q.PageSize
	if end > len(matches) {
		end = len(matches)
	}
	return append([]service.Task(nil), matches[start:end]...), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, t service.Task) (service.TaskID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Creates = append(f.Creates, t)
	if f.CreateTaskErr != nil {
		return 0, f.CreateTaskErr
	}
	return f.insertLocked(t), nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, t service.Task) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updates = append(f.Updates, t)
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	if _, ok := f.tasks[t.ID]; !ok {
		return service.Task{}, ErrNotFound
	}
	f.tasks[t.ID] = t
	return t, nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id service.TaskID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deletes = append(f.Deletes, id)
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	if _, ok := f.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

// User implements service.Service.
func (f *FakeService) User() service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}
