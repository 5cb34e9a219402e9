package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/hubcap/pkg/observability"
	"github.com/platinummonkey/hubcap/pkg/plugins"
)

// Config holds all application configuration
type Config struct {
	// Plugin host configuration
	Plugins PluginConfig

	// Run history configuration
	History HistoryConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// PluginConfig holds plugin discovery and security settings
type PluginConfig struct {
	SearchPaths         []string // Extra search paths, searched before the defaults
	IncludeDefaultPaths bool
	RequireHash         bool
	EnableBuiltins      bool
	MaxConcurrentRuns   int
}

// HistoryConfig holds run history settings
type HistoryConfig struct {
	// Path of the history file; empty means the per-user default
	Path string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  string
	LogFormat observability.LogFormat

	// Metrics (served by the watch command)
	MetricsAddr     string
	ShutdownTimeout time.Duration

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Plugins:       loadPluginConfig(),
		History:       loadHistoryConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadPluginConfig loads plugin configuration from environment
func loadPluginConfig() PluginConfig {
	return PluginConfig{
		SearchPaths:         getEnvPathList("HUBCAP_PLUGIN_PATHS"),
		IncludeDefaultPaths: getEnvBool("HUBCAP_DEFAULT_PATHS", true),
		RequireHash:         getEnvBool("HUBCAP_REQUIRE_HASH", true),
		EnableBuiltins:      getEnvBool("HUBCAP_BUILTINS", false),
		MaxConcurrentRuns:   getEnvInt("HUBCAP_MAX_CONCURRENT_RUNS", 4),
	}
}

// loadHistoryConfig loads history configuration from environment
func loadHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Path: getEnv("HUBCAP_HISTORY_PATH", ""),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           getEnv("HUBCAP_LOG_LEVEL", "warn"),
		LogFormat:          observability.LogFormat(strings.ToLower(getEnv("HUBCAP_LOG_FORMAT", "text"))),
		MetricsAddr:        getEnv("HUBCAP_METRICS_ADDR", ":9464"),
		ShutdownTimeout:    getEnvDuration("HUBCAP_SHUTDOWN_TIMEOUT", 10*time.Second),
		OTelEnabled:        getEnvBool("HUBCAP_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("HUBCAP_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("HUBCAP_OTEL_SERVICE_NAME", "hubcap"),
		OTelServiceVersion: getEnv("HUBCAP_OTEL_SERVICE_VERSION", "0.1.0"),
		OTelInsecure:       getEnvBool("HUBCAP_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Plugins.MaxConcurrentRuns < 1 {
		return fmt.Errorf("max concurrent runs must be at least 1, got %d", c.Plugins.MaxConcurrentRuns)
	}

	for _, p := range c.Plugins.SearchPaths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("plugin search paths must not be empty")
		}
	}

	if _, err := logrus.ParseLevel(c.Observability.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Observability.LogLevel)
	}

	switch c.Observability.LogFormat {
	case observability.TextFormat, observability.JSONFormat:
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Observability.LogFormat)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// SearchPaths returns the configured paths followed by the defaults, if enabled
func (c *Config) SearchPaths() []string {
	paths := append([]string(nil), c.Plugins.SearchPaths...)
	if c.Plugins.IncludeDefaultPaths {
		paths = append(paths, plugins.DefaultSearchPaths()...)
	}
	return paths
}

// SecurityPolicy returns the configured plugin security policy
func (c *Config) SecurityPolicy() plugins.SecurityPolicy {
	if c.Plugins.RequireHash {
		return plugins.StrictPolicy()
	}
	return plugins.PermissivePolicy()
}

// OTel returns the tracing configuration
func (c *Config) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvPathList splits an OS path-list variable, dropping empty entries
func getEnvPathList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var paths []string
	for _, p := range filepath.SplitList(value) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
