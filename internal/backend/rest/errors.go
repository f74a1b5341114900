package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

// RequestError is a failed backend call: transport failure or non-2xx response.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.Timeout():
		return "request timed out"
	case e.Unauthorized():
		return "token expired or revoked (run: taskman login)"
	case e.StatusCode == http.StatusNotFound:
		return "not found"
	case e.StatusCode != 0 && !successStatus(e.StatusCode):
		var gerr *googleapi.Error
		if errors.As(e.Err, &gerr) && gerr.Body != "" {
			return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, truncate(gerr.Body, 200))
		}
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request ran out of time.
func (e *RequestError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Unauthorized reports whether the backend rejected the token.
func (e *RequestError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func successStatus(code int) bool {
	return code >= 200 && code <= 299
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(method, path string, status int, err error) error {
	if err == nil {
		return nil
	}
	return &RequestError{Method: method, Path: path, StatusCode: status, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
