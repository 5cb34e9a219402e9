package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/platinummonkey/hubcap/pkg/plugins"
)

// PluginInfo is one row of `hubcap list --json`
type PluginInfo struct {
	Name         string     `json:"name"`
	Version      string     `json:"version"`
	Description  string     `json:"description"`
	Author       string     `json:"author"`
	Homepage     string     `json:"homepage,omitempty"`
	Builtin      bool       `json:"builtin"`
	ManifestPath string     `json:"manifest_path"`
	LibraryPath  string     `json:"library_path"`
	Successes    uint64     `json:"successes"`
	Failures     uint64     `json:"failures"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastStatus   *string    `json:"last_status,omitempty"`
}

func newListCommand(app *App) *Command {
	fs := newFlagSet("list", "list [--json]", app.out())
	outputJSON := fs.Bool("json", false, "Output in JSON format")

	return &Command{
		Name:        "list",
		Description: "List loaded plugins with their run history",
		Usage:       "list [--json]",
		Flags:       fs,
		Run: func(ctx context.Context, args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}
			return runList(ctx, app, *outputJSON)
		},
	}
}

func runList(ctx context.Context, app *App, outputJSON bool) error {
	if err := app.load(ctx); err != nil {
		return err
	}

	descriptors := app.Registry.Descriptors()
	infos := make([]PluginInfo, 0, len(descriptors))
	for _, d := range descriptors {
		infos = append(infos, app.pluginInfo(d))
	}

	w := app.out()
	if outputJSON {
		return writeJSON(w, infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(w, "No plugins found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tRUNS\tFAILURES\tLAST RUN\tDESCRIPTION")
	for _, info := range infos {
		name := info.Name
		if info.Builtin {
			name += " (builtin)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			name,
			info.Version,
			info.Successes+info.Failures,
			info.Failures,
			formatTime(info.LastRun),
			info.Description,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d plugins\n", len(infos))
	return nil
}

func (a *App) pluginInfo(d plugins.Descriptor) PluginInfo {
	info := PluginInfo{
		Name:         d.Metadata.Name,
		Version:      d.Metadata.Version,
		Description:  d.Metadata.Description,
		Author:       d.Metadata.Author,
		Homepage:     d.Metadata.Homepage,
		Builtin:      d.Builtin,
		ManifestPath: d.Metadata.ManifestPath,
		LibraryPath:  d.Metadata.LibraryPath,
	}
	if a.History != nil {
		if stats, ok := a.History.StatsFor(d.Metadata.Name); ok {
			info.Successes = stats.Successes
			info.Failures = stats.Failures
			info.LastRun = stats.LastRun
			info.LastStatus = stats.LastStatus
		}
	}
	return info
}

func newInfoCommand(app *App) *Command {
	fs := newFlagSet("info", "info <name>", app.out())

	return &Command{
		Name:        "info",
		Description: "Show plugin metadata and help text",
		Usage:       "info <name>",
		Flags:       fs,
		Run: func(ctx context.Context, args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}
			if fs.NArg() == 0 {
				return fmt.Errorf("plugin name required. Usage: hubcap info <name>")
			}
			return runInfo(ctx, app, fs.Arg(0))
		},
	}
}

func runInfo(ctx context.Context, app *App, name string) error {
	if err := app.load(ctx); err != nil {
		return err
	}

	d, ok := app.Registry.Descriptor(name)
	if !ok {
		return fmt.Errorf("%w: %s", plugins.ErrNotFound, name)
	}
	info := app.pluginInfo(d)

	w := app.out()
	fmt.Fprintf(w, "Plugin: %s\n", info.Name)
	fmt.Fprintf(w, "Version: %s\n", info.Version)
	fmt.Fprintf(w, "Author: %s\n", info.Author)
	if info.Homepage != "" {
		fmt.Fprintf(w, "Homepage: %s\n", info.Homepage)
	}
	fmt.Fprintf(w, "Builtin: %v\n", info.Builtin)
	fmt.Fprintf(w, "Manifest: %s\n", info.ManifestPath)
	fmt.Fprintf(w, "Library: %s\n", info.LibraryPath)
	fmt.Fprintf(w, "\nDescription:\n  %s\n", info.Description)
	fmt.Fprintf(w, "\nRuns: %d succeeded, %d failed, last %s\n", info.Successes, info.Failures, formatTime(info.LastRun))

	help, ok := app.Registry.HelpFor(name)
	switch {
	case !ok:
		fmt.Fprintln(w, "\nHelp: unavailable (plugin panicked)")
	case help != "":
		fmt.Fprintf(w, "\nHelp:\n%s\n", help)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
