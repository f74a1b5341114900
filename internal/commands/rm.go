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
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete tasks" }
func (c *RmCmd) Usage() string     { return "taskman rm <id...>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	ids, err := ParseTaskIDs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	store := tasks.NewStore(svc, service.Query{PageSize: cfg.Settings.PageSize}, tasks.WithLogger(cfg.Log()))
	cache := make(taskPageCache)

	// Check that every id exists before deleting anything.
	for _, id := range ids {
		if _, err := findTaskByID(ctx, svc, id, cache); err != nil {
			return fail(errOut, err)
		}
	}

	for _, id := range ids {
		if err := store.Remove(ctx, id); err != nil {
			return fail(errOut, err)
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
