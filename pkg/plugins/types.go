package plugins

import (
	"context"

	"github.com/platinummonkey/hubcap/pkg/events"
)

const (
	// ManifestFileName is the manifest file recognized inside search paths
	ManifestFileName = "hubcap-plugin.yaml"

	// DefaultEntrySymbol is looked up when a manifest has no entry_symbol
	DefaultEntrySymbol = "NewPlugin"
)

// Plugin is the capability interface every plugin instance implements.
//
// Plugins are built with `go build -buildmode=plugin` and export a
// constructor named DefaultEntrySymbol (or the manifest's entry_symbol):
//
//	func NewPlugin() plugins.Plugin { return &hello{} }
type Plugin interface {
	Name() string
	Description() string
	Version() string
	Author() string
	Help() string
	Execute(ctx context.Context, args []string, ec ExecContext) error
}

// ExecContext is handed to a plugin on every execution. The registry passes
// it through untouched.
type ExecContext struct {
	Bus *events.Bus
}

// NewExecContext creates an execution context carrying an optional bus
func NewExecContext(bus *events.Bus) ExecContext {
	return ExecContext{Bus: bus}
}

// Manifest is the on-disk description of a plugin
type Manifest struct {
	Name        string `yaml:"name"`                   // Unique plugin name
	Version     string `yaml:"version"`                // Plugin version
	Description string `yaml:"description"`            // Short description
	Author      string `yaml:"author"`                 // Author name
	Library     string `yaml:"library"`                // Shared object path, relative to the manifest
	Help        string `yaml:"help,omitempty"`         // Optional help text
	Homepage    string `yaml:"homepage,omitempty"`     // Optional homepage URL
	EntrySymbol string `yaml:"entry_symbol,omitempty"` // Optional constructor override
	SHA256      string `yaml:"sha256,omitempty"`       // Optional hex digest of the library
}

// EntryPoint returns the symbol to resolve in the library
func (m *Manifest) EntryPoint() string {
	if m.EntrySymbol != "" {
		return m.EntrySymbol
	}
	return DefaultEntrySymbol
}

// Metadata is the manifest plus resolved paths
type Metadata struct {
	Name         string
	Version      string
	Description  string
	Author       string
	Help         string
	Homepage     string
	ManifestPath string
	LibraryPath  string
}

// Descriptor is the read-only view of a registered plugin handed to callers
type Descriptor struct {
	Metadata Metadata
	Builtin  bool
}

// Name returns the registered plugin name
func (d Descriptor) Name() string {
	return d.Metadata.Name
}

// SecurityPolicy governs integrity requirements for plugin libraries
type SecurityPolicy struct {
	// RequireHash demands a sha256 in every manifest
	RequireHash bool
}

// StrictPolicy requires every manifest to carry a sha256 checksum
func StrictPolicy() SecurityPolicy {
	return SecurityPolicy{RequireHash: true}
}

// PermissivePolicy allows unsigned plugins (not recommended)
func PermissivePolicy() SecurityPolicy {
	return SecurityPolicy{RequireHash: false}
}

// DefaultPolicy is StrictPolicy
func DefaultPolicy() SecurityPolicy {
	return StrictPolicy()
}

func newMetadata(m *Manifest, manifestPath, libraryPath string) Metadata {
	return Metadata{
		Name:         m.Name,
		Version:      m.Version,
		Description:  m.Description,
		Author:       m.Author,
		Help:         m.Help,
		Homepage:     m.Homepage,
		ManifestPath: manifestPath,
		LibraryPath:  libraryPath,
	}
}
