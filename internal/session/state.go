package session

// State is the position of a Session in its lifecycle.
type State int

// Session states. Initialize moves Uninitialized or Failed through
// Initializing to Authenticated or Failed. Logout returns to Uninitialized.
const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
