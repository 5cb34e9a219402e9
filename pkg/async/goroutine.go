package async

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Optional timeout (zero means none)
// - Error logging
//
// Use this instead of bare `go func()` for long-lived helpers such as the
// watch loop and the metrics server.
//
// Example:
//
//	SafeGo(ctx, log, 0, "metrics server", func(ctx context.Context) error {
//	    return srv.ListenAndServe()
//	})
func SafeGo(parentCtx context.Context, log *logrus.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	go func() {
		ctx, cancel := parentCtx, context.CancelFunc(func() {})
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(parentCtx, timeout)
		}
		defer cancel()

		var err error
		if p := observability.Capture(func() { err = fn(ctx) }); p != nil {
			log.WithFields(logrus.Fields{
				"task":  taskName,
				"panic": p.Value,
				"stack": string(p.Stack),
			}).Error("Panic in background task")
			return
		}

		if err != nil {
			log.WithError(err).WithField("task", taskName).Error("Background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
func SafeGoNoError(parentCtx context.Context, log *logrus.Logger, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, log, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
