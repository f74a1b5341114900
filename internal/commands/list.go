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
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskman` (no args) and `taskman list [filters]`.
type ListCmd struct {
	priority string
	status   string
	search   string
	page     int
	pageSize int
}

// SetPage sets the 1-based page number (for testing).
func (c *ListCmd) SetPage(page int) {
	c.page = page
}

// SetFilters sets the filter flags (for testing).
func (c *ListCmd) SetFilters(priority, status, search string) {
	c.priority, c.status, c.search = priority, status, search
}

// SetPageSize sets the page size (for testing).
func (c *ListCmd) SetPageSize(n int) {
	c.pageSize = n
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "taskman list [--priority <p>] [--status <s>] [--search <q>] [--page <n>] [--page-size <n>]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.priority, "p", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.status, "s", "", "")
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.search, "q", "", "")
	fs.IntVar(&c.page, "page", 1, "")
	fs.IntVar(&c.pageSize, "page-size", 0, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	// Validate page number
	page := c.page
	if page < 1 {
		fmt.Fprintf(errOut, "error: invalid page number: %d\n", c.page)
		return exitcode.UserError
	}

	pageSize := c.pageSize
	if pageSize == 0 {
		pageSize = cfg.Settings.PageSize
	}
	if pageSize < 1 {
		fmt.Fprintf(errOut, "error: invalid page size: %d\n", c.pageSize)
		return exitcode.UserError
	}

	q := service.Query{Search: c.search, PageSize: pageSize, PageNumber: page - 1}
	if c.priority != "" {
		p, err := service.ParsePriority(c.priority)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		q.Priority = p
	}
	if c.status != "" {
		s, err := service.ParseStatus(c.status)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		q.Status = s
	}

	store := tasks.NewStore(svc, q, tasks.WithLogger(cfg.Log()))
	if err := store.Load(q).Do(ctx); err != nil {
		return fail(errOut, err)
	}

	snap := store.Snapshot()
	if len(snap.Tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	if !cfg.Quiet {
		output.FormatHeader(out)
	}
	for _, t := range snap.Tasks {
		output.FormatTask(out, t)
	}
	if !cfg.Quiet {
		output.FormatPageFooter(out, snap.Query.PageNumber, snap.Query.PageSize, snap.HasNext)
	}
	return exitcode.Success
}
