package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a task field that failed the required-field checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ValidateNew checks the fields required to create a task.
func ValidateNew(t Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return &ValidationError{Field: "title", Message: "required"}
	}
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Field: "description", Message: "required"}
	}
	if !t.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: fmt.Sprintf("invalid: %q", t.Priority)}
	}
	if !t.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid: %q", t.Status)}
	}
	return nil
}

// ValidateExisting checks a task about to be updated.
func ValidateExisting(t Task) error {
	if t.ID <= 0 {
		return &ValidationError{Field: "id", Message: "required"}
	}
	return ValidateNew(t)
}
