package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/platinummonkey/hubcap/pkg/history"
)

// HistoryEntry is one row of `hubcap history --json`
type HistoryEntry struct {
	Name string `json:"name"`
	history.RunStats
}

func newHistoryCommand(app *App) *Command {
	fs := newFlagSet("history", "history [--json] [name]", app.out())
	outputJSON := fs.Bool("json", false, "Output in JSON format")

	return &Command{
		Name:        "history",
		Description: "Show recorded plugin runs",
		Usage:       "history [--json] [name]",
		Flags:       fs,
		Run: func(ctx context.Context, args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}
			return runHistory(app, fs.Arg(0), *outputJSON)
		},
	}
}

func runHistory(app *App, name string, outputJSON bool) error {
	if app.History == nil {
		return fmt.Errorf("plugin history is not available")
	}

	names := app.History.Names()
	if name != "" {
		if _, ok := app.History.StatsFor(name); !ok {
			return fmt.Errorf("no history for plugin %s", name)
		}
		names = []string{name}
	}

	entries := make([]HistoryEntry, 0, len(names))
	for _, n := range names {
		stats, _ := app.History.StatsFor(n)
		entries = append(entries, HistoryEntry{Name: n, RunStats: stats})
	}

	w := app.out()
	if outputJSON {
		return writeJSON(w, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No plugin runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRUNS\tSUCCESSES\tFAILURES\tLAST RUN\tLAST ERROR")
	for _, e := range entries {
		status := ""
		if e.LastStatus != nil {
			status = *e.LastStatus
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n", e.Name, e.TotalRuns(), e.Successes, e.Failures, formatTime(e.LastRun), status)
	}
	return tw.Flush()
}
