package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/service"
	"taskman/internal/tasks"
	"taskman/internal/tui"
)

func init() {
	Register(&UICmd{})
}

// UIRunner runs the terminal UI. Replaced in tests.
type UIRunner func(ctx context.Context, m tui.Model) (loggedOut bool, err error)

// UICmd implements the ui command.
type UICmd struct {
	pageSize int
	auth     Authenticator
	run      UIRunner
}

// SetRunner replaces the terminal UI runner (for testing).
func (c *UICmd) SetRunner(run UIRunner) {
	c.run = run
}

func (c *UICmd) Name() string      { return "ui" }
func (c *UICmd) Aliases() []string { return []string{"tui"} }
func (c *UICmd) Synopsis() string  { return "Open the interactive terminal UI" }
func (c *UICmd) Usage() string     { return "taskman ui [--page-size <n>]" }
func (c *UICmd) NeedsAuth() bool   { return true }

// OwnsTerminal implements TerminalCommand.
func (c *UICmd) OwnsTerminal() bool { return true }

// SetAuthenticator implements AuthCommand.
func (c *UICmd) SetAuthenticator(a Authenticator) {
	c.auth = a
}

func (c *UICmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.pageSize, "page-size", tui.DefaultPageSize, "")
}

func (c *UICmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	pageSize := c.pageSize
	if pageSize == 0 {
		pageSize = tui.DefaultPageSize
	}
	if pageSize < 1 {
		fmt.Fprintf(errOut, "error: invalid page size: %d\n", c.pageSize)
		return exitcode.UserError
	}

	logger := cfg.Log()
	store := tasks.NewStore(svc, service.Query{PageSize: pageSize}, tasks.WithLogger(logger))
	store.OnChange(func(s tasks.Snapshot) {
		logger.Debug("page loaded", "page", s.Query.PageNumber, "size", s.Query.PageSize, "tasks", len(s.Tasks))
	})

	opts := tui.Options{Logger: logger}
	if c.auth != nil {
		opts.Logout = c.auth.Logout
	}

	run := c.run
	if run == nil {
		run = tui.Run
	}
	loggedOut, err := run(ctx, tui.NewModel(ctx, store, svc.User(), opts))
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	if loggedOut && !cfg.Quiet {
		fmt.Fprintln(out, "logged out")
	}
	return exitcode.Success
}
