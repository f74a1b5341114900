// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"taskman/internal/service"
	"taskman/internal/session"
)

// Exit codes returned by the CLI.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, validation, not found).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)

// FromError maps an error to the exit code a command returns for it.
// Request failures and anything unrecognized are backend errors.
func FromError(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, service.ErrValidation):
		return UserError
	case errors.Is(err, session.ErrAuthentication), errors.Is(err, session.ErrNotAuthenticated):
		return AuthError
	default:
		return BackendError
	}
}
