package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct {
	registry *Registry
}

// SetRegistry sets the registry whose commands are listed (for testing).
func (c *HelpCmd) SetRegistry(r *Registry) {
	c.registry = r
}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskman help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)

	registry := c.registry
	if registry == nil {
		registry = DefaultRegistry
	}
	fmt.Fprintln(out, "\nCommands:")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, cmd := range registry.All() {
		name := cmd.Name()
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			name += " (" + strings.Join(aliases, ", ") + ")"
		}
		fmt.Fprintf(tw, "  %s\t%s\n", name, cmd.Synopsis())
	}
	tw.Flush()
	return exitcode.Success
}

const helpText = `Usage:
  taskman                                   List the first page of tasks
  taskman list [common flags] [--priority <p>] [--status <s>] [--search <q>]
               [--page <n>] [--page-size <n>]
  taskman add [common flags] [--description <d>] [--priority <p>] [--status <s>] [-i] <title...>
  taskman create [common flags] ...         Same as add
  taskman edit [common flags] [--title <t>] [--description <d>] [--priority <p>] [--status <s>] <id>
  taskman done [common flags] <id...>
  taskman rm [common flags] <id...>
  taskman ui [common flags]                 Interactive terminal UI
  taskman login [common flags]
  taskman logout [common flags]
  taskman whoami [common flags]
  taskman help
  taskman version

Priorities: LOW, MEDIUM, HIGH
Statuses:   PENDING, IN_PROGRESS, COMPLETED

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
