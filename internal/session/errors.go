package session

import "errors"

var (
	// ErrAuthentication is returned when login or initialization did not complete.
	// Protected operations must not run after it.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRenewal wraps a single failed refresh attempt. It is logged, not surfaced.
	ErrRenewal = errors.New("token renewal failed")

	// ErrNotAuthenticated is returned by operations that need a session before one exists.
	ErrNotAuthenticated = errors.New("not authenticated")
)
