// Package service defines the backend-agnostic types and interface for task operations.
package service

import (
	"fmt"
	"strings"
	"time"
)

// TaskID identifies a task on the backend.
// Responses carry it as "id"; update and delete requests send it as "taskId".
type TaskID int64

// Priority is the urgency of a task.
type Priority string

// Priority values accepted by the backend.
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Priorities lists every priority in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Status is the progress state of a task.
type Status string

// Status values accepted by the backend.
const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// Task represents a single task record.
type Task struct {
	ID          TaskID   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
}

// User is the identity the backend calls are made under.
type User struct {
	Username  string
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParsePriority parses a priority name, ignoring case and surrounding space.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %s", s)
	}
	return p, nil
}

// ParseStatus parses a status name, ignoring case and surrounding space.
// Dashes and spaces are accepted in place of underscores (in-progress).
func ParseStatus(s string) (Status, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	st := Status(norm)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %s", s)
	}
	return st, nil
}
