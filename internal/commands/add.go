package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/service"
	"taskman/internal/tasks"
)

func init() {
	Register(&AddCmd{})
	Register(&CreateCmd{name: "create"})
}

// FormRunner fills in a task interactively. It returns an error if the user aborts.
type FormRunner func(t *service.Task) error

// AddCmd implements the add command.
type AddCmd struct {
	description string
	priority    string
	status      string
	interactive bool

	form FormRunner
}

// SetFields sets the field flags (for testing).
func (c *AddCmd) SetFields(description, priority, status string) {
	c.description, c.priority, c.status = description, priority, status
}

// SetForm enables interactive mode with the given form runner (for testing).
func (c *AddCmd) SetForm(form FormRunner) {
	c.interactive = true
	c.form = form
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return nil }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskman add [--description <d>] [--priority <p>] [--status <s>] [-i] <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.StringVar(&c.priority, "priority", string(service.PriorityLow), "")
	fs.StringVar(&c.priority, "p", string(service.PriorityLow), "")
	fs.StringVar(&c.status, "status", string(service.StatusPending), "")
	fs.StringVar(&c.status, "s", string(service.StatusPending), "")
	fs.BoolVar(&c.interactive, "i", false, "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, cfg, svc, c, args, out, errOut)
}

// CreateCmd is an alias for AddCmd.
type CreateCmd struct {
	AddCmd
	name string
}

func (c *CreateCmd) Name() string     { return c.name }
func (c *CreateCmd) Synopsis() string { return "Create a task (alias for add)" }
func (c *CreateCmd) Usage() string {
	return "taskman create [--description <d>] [--priority <p>] [--status <s>] [-i] <title...>"
}

// runAdd is the shared implementation for add and create commands.
func runAdd(ctx context.Context, cfg *config.Config, svc service.Service, c *AddCmd, args []string, out, errOut io.Writer) int {
	task := service.Task{
		Title:       strings.TrimSpace(strings.Join(args, " ")),
		Description: c.description,
		Priority:    service.PriorityLow,
		Status:      service.StatusPending,
	}
	if c.priority != "" {
		p, err := service.ParsePriority(c.priority)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		task.Priority = p
	}
	if c.status != "" {
		s, err := service.ParseStatus(c.status)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		task.Status = s
	}

	if c.interactive {
		form := c.form
		if form == nil {
			form = runTaskForm
		}
		if err := form(&task); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}

	store := tasks.NewStore(svc, service.Query{PageSize: cfg.Settings.PageSize}, tasks.WithLogger(cfg.Log()))
	id, err := store.Create(ctx, task)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok %d\n", id)
	}
	return exitcode.Success
}
