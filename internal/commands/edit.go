package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/output"
	"taskman/internal/service"
	"taskman/internal/tasks"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
// Fields without a flag keep their current value.
type EditCmd struct {
	title       optionalString
	description optionalString
	priority    optionalString
	status      optionalString
}

// optionalString is a flag.Value that remembers whether it was set.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(s string) error {
	o.value, o.set = s, true
	return nil
}

// SetTitle sets the --title flag (for testing).
func (c *EditCmd) SetTitle(s string) { _ = c.title.Set(s) }

// SetStatus sets the --status flag (for testing).
func (c *EditCmd) SetStatus(s string) { _ = c.status.Set(s) }

// SetPriority sets the --priority flag (for testing).
func (c *EditCmd) SetPriority(s string) { _ = c.priority.Set(s) }

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"update"} }
func (c *EditCmd) Synopsis() string  { return "Change fields of a task" }
func (c *EditCmd) Usage() string {
	return "taskman edit [--title <t>] [--description <d>] [--priority <p>] [--status <s>] <id>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
	fs.Var(&c.priority, "priority", "")
	fs.Var(&c.priority, "p", "")
	fs.Var(&c.status, "status", "")
	fs.Var(&c.status, "s", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: task id required")
		return exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}
	id, err := ParseTaskID(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if !c.title.set && !c.description.set && !c.priority.set && !c.status.set {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	var priority service.Priority
	if c.priority.set {
		if priority, err = service.ParsePriority(c.priority.value); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}
	var status service.Status
	if c.status.set {
		if status, err = service.ParseStatus(c.status.value); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}

	task, err := findTaskByID(ctx, svc, id, nil)
	if err != nil {
		return fail(errOut, err)
	}

	if c.title.set {
		task.Title = c.title.value
	}
	if c.description.set {
		task.Description = c.description.value
	}
	if c.priority.set {
		task.Priority = priority
	}
	if c.status.set {
		task.Status = status
	}

	store := tasks.NewStore(svc, service.Query{PageSize: cfg.Settings.PageSize}, tasks.WithLogger(cfg.Log()))
	updated, err := store.Update(ctx, task)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		output.FormatTaskDetail(out, updated)
	}
	return exitcode.Success
}
