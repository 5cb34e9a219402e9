// Package plugins discovers, verifies, loads and executes hubcap plugins.
//
// # Overview
//
// A plugin is a Go shared object built with -buildmode=plugin plus a
// hubcap-plugin.yaml manifest describing it. The Registry scans its search
// paths, checks each library against the manifest's sha256, opens it, resolves
// the entry symbol and keeps the resulting instance until the next Load or Clear.
//
// # Manifest
//
//	name: hello
//	version: 1.0.0
//	description: Says hello
//	author: Example
//	library: hello.so
//	sha256: 3b1f...
//
// A relative library path is resolved against the manifest's directory.
// entry_symbol overrides the default NewPlugin constructor.
//
// # Load pipeline
//
// For every manifest: parse, resolve library path, verify, check the library
// exists, reject duplicate names, open, look up the entry symbol, construct.
// The first failure aborts the whole pass and leaves the registry empty.
//
// Verification happens before Open because opening a Go plugin runs its
// package init functions.
//
// # Security
//
// StrictPolicy (the default) rejects any manifest without a sha256.
// PermissivePolicy skips verification entirely. A verified plugin runs with the
// full privileges of the host process.
//
// # Usage Example
//
//	registry := plugins.NewDefaultRegistry(logger)
//	count, err := registry.Load(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, d := range registry.Descriptors() {
//		fmt.Println(d.Name(), d.Metadata.Version)
//	}
//
//	err = registry.ExecutePlugin(ctx, "hello", []string{"world"}, plugins.NewExecContext(bus))
//
// Panics raised by plugin code surface as *ExecutionError and match ErrExecution.
//
// # Related Packages
//
//   - pkg/history: per-plugin run counters
//   - pkg/async: background execution with history recording
//   - pkg/events: bus passed to plugins through ExecContext
package plugins
