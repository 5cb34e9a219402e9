// Package async runs plugin executions in the background.
//
// # Overview
//
// Registry.ExecutePlugin blocks for as long as the plugin runs and has no
// timeout of its own. Runner moves each execution onto its own goroutine,
// records the outcome in the plugin history and reports completion on a
// channel, so interactive callers stay responsive while a plugin works.
//
// # Runner
//
//	runner := async.NewRunner(registry, store, async.RunnerConfig{MaxConcurrent: 4})
//
//	id, err := runner.Submit(ctx, "hello", []string{"world"}, plugins.NewExecContext(bus))
//	if errors.Is(err, async.ErrBusy) {
//		// too many runs in flight
//	}
//
//	for res := range runner.Results() {
//		fmt.Println(res.ID, res.Plugin, res.Err)
//	}
//
// Poll drains finished results without blocking; Wait blocks until every
// submitted run is done. History write failures are logged and never turn a
// successful run into a failure.
//
// # Background helpers
//
// SafeGo runs a long-lived helper with panic recovery, optional timeout and
// error logging.
package async
