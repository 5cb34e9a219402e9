// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Plugin settings:
//
//	HUBCAP_PLUGIN_PATHS="/opt/hubcap/plugins:/srv/plugins"  # OS path-list separator
//	HUBCAP_DEFAULT_PATHS="true"        # also search the per-user defaults
//	HUBCAP_REQUIRE_HASH="true"         # strict policy; "false" allows unsigned plugins
//	HUBCAP_BUILTINS="false"            # register the fd and rg wrappers
//	HUBCAP_MAX_CONCURRENT_RUNS="4"
//
// History settings:
//
//	HUBCAP_HISTORY_PATH=""             # default: <user config dir>/hubcap/plugin_history.json
//
// Observability settings:
//
//	HUBCAP_LOG_LEVEL="warn"
//	HUBCAP_LOG_FORMAT="text"           # text or json
//	HUBCAP_METRICS_ADDR=":9464"
//	HUBCAP_SHUTDOWN_TIMEOUT="10s"
//	HUBCAP_OTEL_ENABLED="false"
//	HUBCAP_OTEL_ENDPOINT="localhost:4317"
//	HUBCAP_OTEL_SERVICE_NAME="hubcap"
//	HUBCAP_OTEL_SERVICE_VERSION="0.1.0"
//	HUBCAP_OTEL_INSECURE="true"
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	registry := plugins.NewRegistry(cfg.SearchPaths(), logger)
//	registry.SetSecurityPolicy(cfg.SecurityPolicy())
package config
