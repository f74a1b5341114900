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
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string  { return "Mark tasks completed" }
func (c *DoneCmd) Usage() string     { return "taskman done <id...>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	ids, err := ParseTaskIDs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	store := tasks.NewStore(svc, service.Query{PageSize: cfg.Settings.PageSize}, tasks.WithLogger(cfg.Log()))
	cache := make(taskPageCache)

	// Resolve every id before changing anything.
	todo := make([]service.Task, 0, len(ids))
	for _, id := range ids {
		task, err := findTaskByID(ctx, svc, id, cache)
		if err != nil {
			return fail(errOut, err)
		}
		todo = append(todo, task)
	}

	for _, task := range todo {
		if task.Status == service.StatusCompleted {
			continue
		}
		if _, err := store.Complete(ctx, task); err != nil {
			return fail(errOut, err)
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
