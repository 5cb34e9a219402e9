package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/platinummonkey/hubcap/pkg/plugins"
)

func newVerifyCommand(app *App) *Command {
	fs := newFlagSet("verify", "verify [--json]", app.out())
	outputJSON := fs.Bool("json", false, "Output in JSON format")

	return &Command{
		Name:        "verify",
		Description: "Check plugin checksums without loading any code",
		Usage:       "verify [--json]",
		Flags:       fs,
		Run: func(ctx context.Context, args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}
			return runVerify(ctx, app, *outputJSON)
		},
	}
}

func runVerify(ctx context.Context, app *App, outputJSON bool) error {
	found, err := plugins.Discover(ctx, app.Registry.SearchPaths())
	if err != nil {
		return fmt.Errorf("failed to discover plugins: %w", err)
	}

	verifier := plugins.NewVerifier(app.Registry.SecurityPolicy(), app.logger())
	reports, err := verifier.VerifyAll(ctx, found)
	if err != nil {
		return fmt.Errorf("verification interrupted: %w", err)
	}

	failed, warnings := 0, 0
	for _, r := range reports {
		if r.Err() != nil {
			failed++
		}
		warnings += len(r.Warnings)
	}

	w := app.out()
	if outputJSON {
		if err := writeJSON(w, reports); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		fmt.Fprintln(tw, "STATUS\tNAME\tMANIFEST\tDETAIL")
		for _, r := range reports {
			status, detail := "OK", r.LibraryPath
			switch {
			case r.Err() != nil:
				status, detail = "FAIL", r.Error
			case r.Skipped:
				status = "UNCHECKED"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", status, r.Name, r.ManifestPath, detail)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if warnings > 0 {
			fmt.Fprintln(w, "\nWarnings:")
			for _, r := range reports {
				for _, issue := range r.Warnings {
					fmt.Fprintf(w, "  %s: %s\n", r.Name, issue)
				}
			}
		}
		fmt.Fprintf(w, "\nVerified %d manifests, %d failed\n", len(reports), failed)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d plugins failed verification", failed, len(reports))
	}
	return nil
}
