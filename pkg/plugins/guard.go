package plugins

import (
	"github.com/platinummonkey/hubcap/pkg/observability"
)

// Every call into plugin code goes through one of these two functions so a
// panic raised by the plugin is returned as *ExecutionError instead of
// unwinding through host frames.

func guardConstruct(name string, ctor func() (Plugin, error)) (instance Plugin, err error) {
	if p := observability.Capture(func() { instance, err = ctor() }); p != nil {
		return nil, &ExecutionError{Plugin: name, Stage: "construct", Value: p.Value, Stack: p.Stack}
	}
	return instance, err
}

func guardExecute(name string, fn func() error) (err error) {
	if p := observability.Capture(func() { err = fn() }); p != nil {
		return &ExecutionError{Plugin: name, Stage: "execute", Value: p.Value, Stack: p.Stack}
	}
	return err
}

// guardString reads a self-reported string (help text and similar)
func guardString(fn func() string) (s string, ok bool) {
	if p := observability.Capture(func() { s = fn() }); p != nil {
		return "", false
	}
	return s, true
}
