// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires authentication.
	// The dispatcher blocks on session initialization before running it
	// and never runs it if initialization fails.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths, settings).
	// svc is nil if NeedsAuth() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int
}

// Authenticator is the session side of the application, for commands that
// manage login state themselves.
type Authenticator interface {
	// Login establishes the session, running the browser flow if needed.
	Login(ctx context.Context) (service.User, error)

	// Logout ends the session and forgets the stored token.
	Logout(ctx context.Context) error
}

// AuthCommand is implemented by commands that need the Authenticator.
// The dispatcher injects it before Run.
type AuthCommand interface {
	Command
	SetAuthenticator(a Authenticator)
}

// TerminalCommand is implemented by commands that take over the terminal.
// Their logs go to the log file instead of stderr.
type TerminalCommand interface {
	Command
	OwnsTerminal() bool
}

// fail prints err in the CLI error format and returns its exit code.
func fail(errOut io.Writer, err error) int {
	if errors.Is(err, errTaskNotFound) {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	code := exitcode.FromError(err)
	switch code {
	case exitcode.AuthError:
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
	case exitcode.BackendError:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}
