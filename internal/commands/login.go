package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	auth Authenticator
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in with the identity provider" }
func (c *LoginCmd) Usage() string     { return "taskman login [common flags]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

// SetAuthenticator implements AuthCommand.
func (c *LoginCmd) SetAuthenticator(a Authenticator) {
	c.auth = a
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if c.auth == nil {
		fmt.Fprintln(errOut, "error: auth error: identity provider not configured")
		return exitcode.AuthError
	}

	// Ensure config directory exists for the token file
	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}

	user, err := c.auth.Login(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		if user.Username != "" {
			fmt.Fprintf(out, "ok, logged in as %s\n", user.Username)
		} else {
			fmt.Fprintln(out, "ok")
		}
	}
	return exitcode.Success
}
