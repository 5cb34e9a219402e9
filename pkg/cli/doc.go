// Package cli provides the hubcap command-line interface.
//
// # Overview
//
// The `hubcap` tool discovers plugin manifests on the configured search
// paths, verifies their libraries and runs them. Every command shares one
// App, which carries the plugin registry, the run history store and the
// observability plumbing built by cmd/hubcap.
//
// # Commands
//
// list: Load plugins and print them with their run history
//
//	hubcap list
//	hubcap list --json
//
// info: Show metadata and the plugin's own help text
//
//	hubcap info hello
//
// run: Execute a plugin. Arguments after the name are passed through as is.
//
//	hubcap run hello --greeting hi world
//
// verify: Check every manifest's checksum without loading any code
//
//	hubcap verify --json
//
// history: Print recorded runs, optionally for one plugin
//
//	hubcap history hello
//
// watch: Reload whenever a search path changes until SIGINT or SIGTERM.
// Meanwhile it serves GET /metrics (Prometheus), GET /plugins and
// GET /plugins/{name} (JSON, same shape as list --json).
//
//	hubcap watch --metrics-addr :9464
//
// Go plugins cannot be unloaded. watch picks up new and removed plugins, but
// a library rebuilt in place keeps running its old code until restart.
//
// # Configuration
//
// Search paths, the hash policy, history location and logging all come from
// HUBCAP_* environment variables; see pkg/config.
//
// # Related Packages
//
//   - pkg/plugins: Discovery, verification, loading and the registry
//   - pkg/history: Persistent run statistics
//   - pkg/async: Background plugin runner
package cli
