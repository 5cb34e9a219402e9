package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/platinummonkey/hubcap/pkg/async"
	"github.com/platinummonkey/hubcap/pkg/events"
	"github.com/platinummonkey/hubcap/pkg/plugins"
)

const eventBufferSize = 64

func newRunCommand(app *App) *Command {
	return &Command{
		Name:        "run",
		Description: "Run a plugin and record the outcome",
		Usage:       "run <name> [args...]",
		// Everything after the name belongs to the plugin, so no flag parsing here.
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("plugin name required. Usage: hubcap run <name> [args...]")
			}
			return runPlugin(ctx, app, args[0], args[1:])
		},
	}
}

func runPlugin(ctx context.Context, app *App, name string, args []string) error {
	if err := app.load(ctx); err != nil {
		return err
	}
	if _, ok := app.Registry.Descriptor(name); !ok {
		return fmt.Errorf("%w: %s", plugins.ErrNotFound, name)
	}

	runner := async.NewRunner(app.Registry, app.recorder(), async.RunnerConfig{
		MaxConcurrent: app.MaxConcurrentRuns,
		Logger:        app.logger(),
		Metrics:       app.Metrics,
	})

	bus := events.NewBus(eventBufferSize)
	sub := bus.Subscribe()

	w := app.out()
	var printer sync.WaitGroup
	printer.Add(1)
	go func() {
		defer printer.Done()
		for msg := range sub.C() {
			fmt.Fprintf(w, "[%s] %v\n", msg.Topic, msg.Payload)
		}
	}()

	stop := func() {
		bus.Close()
		printer.Wait()
	}

	id, err := runner.Submit(ctx, name, args, plugins.NewExecContext(bus))
	if err != nil {
		stop()
		return err
	}

	select {
	case res := <-runner.Results():
		stop()
		if res.Err != nil {
			return fmt.Errorf("plugin %s failed: %w", name, res.Err)
		}
		app.logger().WithField("run_id", id).Debugf("Plugin %s finished in %s", name, res.Duration())
		return nil
	case <-ctx.Done():
		// A plugin that ignores ctx keeps running until the process exits
		stop()
		return ctx.Err()
	}
}
