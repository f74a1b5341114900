// Package service defines the backend-agnostic types and interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// All backend REST calls go through this interface.
// Commands and the terminal UI never talk HTTP directly.
type Service interface {
	// ListTasks returns one page of tasks matching q.
	// A non-empty q.Search routes to the full-text search endpoint.
	ListTasks(ctx context.Context, q Query) ([]Task, error)

	// CreateTask creates a task and returns its new ID.
	// t.ID is ignored. Not idempotent: callers must not retry blindly.
	CreateTask(ctx context.Context, t Task) (TaskID, error)

	// UpdateTask replaces every field of the task identified by t.ID.
	UpdateTask(ctx context.Context, t Task) (Task, error)

	// DeleteTask deletes a task by ID.
	DeleteTask(ctx context.Context, id TaskID) error

	// User returns the identity of the session requests are made under.
	User() User
}
