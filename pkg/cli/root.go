package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/hubcap/pkg/async"
	"github.com/platinummonkey/hubcap/pkg/history"
	"github.com/platinummonkey/hubcap/pkg/observability"
	"github.com/platinummonkey/hubcap/pkg/plugins"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
	Output      io.Writer
}

// App carries the dependencies shared by every command
type App struct {
	Registry *plugins.Registry
	History  *history.Store
	Logger   *logrus.Logger

	// Metrics is handed to the runner; Gatherer backs the watch /metrics endpoint
	Metrics  *observability.Metrics
	Gatherer *prometheus.Registry

	MaxConcurrentRuns int
	MetricsAddr       string
	ShutdownTimeout   time.Duration

	Out io.Writer
}

func (a *App) out() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}

func (a *App) logger() *logrus.Logger {
	if a.Logger == nil {
		return logrus.StandardLogger()
	}
	return a.Logger
}

// recorder avoids handing the runner a typed nil
func (a *App) recorder() async.Recorder {
	if a.History == nil {
		return nil
	}
	return a.History
}

func (a *App) load(ctx context.Context) error {
	if _, err := a.Registry.Load(ctx); err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}
	return nil
}

// NewRootCommand creates the root command
func NewRootCommand(app *App) *Command {
	root := &Command{
		Name:        "hubcap",
		Description: "Hubcap - A verified plugin host",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("hubcap", flag.ContinueOnError),
		Output:      app.out(),
	}

	for _, cmd := range []*Command{
		newListCommand(app),
		newInfoCommand(app),
		newRunCommand(app),
		newVerifyCommand(app),
		newHistoryCommand(app),
		newWatchCommand(app),
	} {
		root.Subcommands[cmd.Name] = cmd
	}

	return root
}

// Execute runs the command with os.Args
func (c *Command) Execute(ctx context.Context) error {
	return c.ExecuteArgs(ctx, os.Args[1:])
}

// ExecuteArgs runs the command with explicit arguments
func (c *Command) ExecuteArgs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	switch strings.ToLower(args[0]) {
	case "-h", "--help", "help":
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		err := subcmd.Run(ctx, args[1:])
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	w := c.Output
	if w == nil {
		w = os.Stdout
	}

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

// newFlagSet builds a subcommand flag set that reports to w instead of exiting
func newFlagSet(name, usage string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage: hubcap %s\n", usage)
		fs.PrintDefaults()
	}
	return fs
}
