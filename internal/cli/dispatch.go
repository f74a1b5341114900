// Package cli parses the command line and dispatches to registered commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskman/internal/commands"
	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/logging"
	"taskman/internal/service"
	"taskman/internal/session"
)

// defaultLogLevel applies when neither config nor --debug sets one.
const defaultLogLevel = "warn"

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  RuntimeFactory
}

// NewDispatcher creates a new dispatcher with the given registry and runtime factory.
// A nil factory uses NewRuntime.
func NewDispatcher(registry *commands.Registry, factory RuntimeFactory) *Dispatcher {
	if factory == nil {
		factory = NewRuntime
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug
	if err := cfg.Load(); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	closeLog := d.setupLogger(cfg, cmd, errOut)
	defer closeLog()

	authCmd, wantsAuth := cmd.(commands.AuthCommand)
	if !cmd.NeedsAuth() && !wantsAuth {
		return cmd.Run(ctx, cfg, nil, positionalArgs, out, errOut)
	}

	rt, err := d.factory(ctx, cfg)
	if err != nil {
		if !cmd.NeedsAuth() {
			// login and logout report the missing provider themselves
			cfg.Log().Warn("session unavailable", "err", err)
			return cmd.Run(ctx, cfg, nil, positionalArgs, out, errOut)
		}
		fmt.Fprintf(errOut, "error: auth error: %s\n", err)
		return exitcode.AuthError
	}
	defer rt.Close()

	if wantsAuth {
		authCmd.SetAuthenticator(rt)
	}

	var svc service.Service
	if cmd.NeedsAuth() {
		// Block on session initialization; the command never runs without it.
		svc, err = rt.Service(ctx)
		if err != nil {
			return reportServiceError(errOut, err)
		}
	}

	return cmd.Run(ctx, cfg, svc, positionalArgs, out, errOut)
}

// setupLogger installs cfg.Logger. Commands that own the terminal log to
// the log file; everything else logs to errOut.
func (d *Dispatcher) setupLogger(cfg *config.Config, cmd commands.Command, errOut io.Writer) func() {
	level := cfg.Settings.LogLevel
	if level == "" {
		level = defaultLogLevel
	}

	if tc, ok := cmd.(commands.TerminalCommand); ok && tc.OwnsTerminal() {
		if err := cfg.EnsureDir(); err == nil {
			if f, err := logging.OpenFile(cfg.LogPath()); err == nil {
				cfg.Logger = logging.New(f, logging.Options{Level: level, Debug: cfg.Debug, Timestamps: true})
				return func() { f.Close() }
			}
		}
		cfg.Logger = logging.Discard()
		return func() {}
	}

	cfg.Logger = logging.New(errOut, logging.Options{Level: level, Debug: cfg.Debug})
	return func() {}
}

func reportServiceError(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, session.ErrAuthentication):
		fmt.Fprintf(errOut, "error: auth error: %s\n", err)
		return exitcode.AuthError
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(errOut, "error: interrupted")
		return exitcode.UserError
	default:
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}
}

// flagError rewrites flag package errors into the CLI error format.
func flagError(err error) string {
	errStr := err.Error()

	// Check for missing flag value
	if strings.HasPrefix(errStr, "flag needs an argument:") {
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
		return "flag needs an argument: " + flagName
	}

	// Check for unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		return "unknown flag: " + strings.TrimSpace(strings.TrimPrefix(errStr, "flag provided but not defined:"))
	}

	return errStr
}
