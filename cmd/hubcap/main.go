package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/hubcap/pkg/cli"
	"github.com/platinummonkey/hubcap/pkg/config"
	"github.com/platinummonkey/hubcap/pkg/history"
	"github.com/platinummonkey/hubcap/pkg/observability"
	"github.com/platinummonkey/hubcap/pkg/plugins"
)

func main() {
	os.Exit(run())
}

func run() (code int) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Setup logger
	logger := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)
	defer observability.RecoverPanicWithCallback(logger, "hubcap", func(interface{}) { code = 2 })

	// Setup signal handling; watch installs its own graceful shutdown on top
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Debug("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Tracing
	tp, err := observability.InitOTel(ctx, cfg.OTel(), logger)
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = observability.ShutdownOTel(shutdownCtx, tp, logger)
	}()

	// Metrics
	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)

	// Plugin registry
	registry := plugins.NewRegistry(cfg.SearchPaths(), logger)
	registry.SetSecurityPolicy(cfg.SecurityPolicy())
	registry.SetMetrics(metrics)
	if cfg.Plugins.EnableBuiltins {
		registry.SetBuiltins(plugins.BuiltinPlugins())
	}

	// Run history
	var store *history.Store
	if cfg.History.Path != "" {
		store = history.NewStore(cfg.History.Path, logger)
	} else {
		store = history.Open(logger)
	}

	root := cli.NewRootCommand(&cli.App{
		Registry:          registry,
		History:           store,
		Logger:            logger,
		Metrics:           metrics,
		Gatherer:          promRegistry,
		MaxConcurrentRuns: cfg.Plugins.MaxConcurrentRuns,
		MetricsAddr:       cfg.Observability.MetricsAddr,
		ShutdownTimeout:   cfg.Observability.ShutdownTimeout,
		Out:               os.Stdout,
	})

	if err := root.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
