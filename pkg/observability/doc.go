// Package observability provides logging setup, Prometheus metrics,
// OpenTelemetry tracing, panic capture and graceful shutdown for hubcap.
//
// # Logging
//
//	logger := observability.NewLogger("debug", observability.TextFormat, os.Stderr)
//	logger.WithField("plugin", name).Info("Loaded plugin")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	http.Handle("/metrics", observability.Handler(registry))
//
// Every Metrics method is safe to call on a nil *Metrics, so components take
// an optional metrics pointer without nil checks at each call site.
//
// # Tracing
//
//	tp, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "localhost:4317",
//		ServiceName: "hubcap",
//		Insecure:    true,
//	}, logger)
//	defer observability.ShutdownOTel(ctx, tp, logger)
//
// # Panic capture
//
// Capture runs a function and returns the panic it raised, if any. The plugin
// registry wraps every call into plugin code with it.
//
// # Graceful Shutdown
//
//	sm := observability.NewShutdownManager(logger, server, 10*time.Second)
//	sm.RegisterShutdownFunc(func(ctx context.Context) error { return watcher.Close() })
//	sm.WaitForShutdown(ctx)
package observability
