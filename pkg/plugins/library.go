package plugins

import (
	"fmt"
)

// Library is an opened plugin library
type Library interface {
	Lookup(symbol string) (interface{}, error)
}

// Opener opens plugin libraries. NativeOpener is the production implementation;
// tests inject in-process libraries.
type Opener interface {
	Open(path string) (Library, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(path string) (Library, error)

// Open calls f(path)
func (f OpenerFunc) Open(path string) (Library, error) {
	return f(path)
}

// Symbols is an in-process Library backed by a map, used for builtins and tests
type Symbols map[string]interface{}

// Lookup returns the named symbol
func (s Symbols) Lookup(symbol string) (interface{}, error) {
	sym, ok := s[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	return sym, nil
}

// loadedPlugin owns a plugin instance together with the library that produced it.
// The two are only ever created, stored and dropped as this one value; nothing
// outside the registry holds either reference.
type loadedPlugin struct {
	descriptor Descriptor
	instance   Plugin
	library    Library
}

// constructor turns a resolved entry symbol into a callable constructor
func constructor(symbol string, sym interface{}) (func() (Plugin, error), error) {
	switch v := sym.(type) {
	case func() Plugin:
		return func() (Plugin, error) { return v(), nil }, nil
	case func() (Plugin, error):
		return v, nil
	case *Plugin:
		if v == nil {
			return nil, fmt.Errorf("symbol %s is a nil Plugin pointer", symbol)
		}
		return func() (Plugin, error) { return *v, nil }, nil
	case Plugin:
		return func() (Plugin, error) { return v, nil }, nil
	default:
		return nil, fmt.Errorf("symbol %s has unsupported type %T (want func() plugins.Plugin)", symbol, sym)
	}
}
