package commands

import (
	"context"
	"flag"
	"io"
	"time"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/output"
	"taskman/internal/service"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct {
	now func() time.Time
}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Show the signed-in user" }
func (c *WhoamiCmd) Usage() string     { return "taskman whoami [common flags]" }
func (c *WhoamiCmd) NeedsAuth() bool   { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

// SetClock sets the time source (for testing).
func (c *WhoamiCmd) SetClock(now func() time.Time) {
	c.now = now
}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	output.FormatUser(out, svc.User(), now())
	return exitcode.Success
}
