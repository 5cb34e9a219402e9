//go:build cgo && (linux || darwin || freebsd)

package plugins

import (
	"plugin"
)

// NativeOpener loads Go plugins built with -buildmode=plugin into the process.
// Opening runs the plugin's package init functions, so libraries must be
// verified before Open is called. The Go runtime never unloads a plugin.
type NativeOpener struct{}

// Open opens the shared object at path
func (NativeOpener) Open(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return nativeLibrary{p: p}, nil
}

type nativeLibrary struct {
	p *plugin.Plugin
}

func (l nativeLibrary) Lookup(symbol string) (interface{}, error) {
	sym, err := l.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// NativeSupported reports whether this build can open native plugins
func NativeSupported() bool {
	return true
}
