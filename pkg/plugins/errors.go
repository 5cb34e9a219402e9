package plugins

import (
	"errors"
	"fmt"
)

// Plugin system errors. Every error returned by this package matches one of
// these with errors.Is.
var (
	// ErrManifestUnparsable is returned when a manifest cannot be read or decoded.
	ErrManifestUnparsable = errors.New("invalid plugin manifest")

	// ErrLibraryMissing is returned when the library a manifest points at does not exist.
	ErrLibraryMissing = errors.New("plugin library missing")

	// ErrLoadFailed is returned when a library cannot be opened or its entry symbol resolved.
	ErrLoadFailed = errors.New("failed to load plugin")

	// ErrDuplicateName is returned when a plugin name is already registered.
	ErrDuplicateName = errors.New("duplicate plugin name")

	// ErrHashMissing is returned when the policy requires a hash and the manifest has none.
	ErrHashMissing = errors.New("plugin manifest missing sha256 checksum")

	// ErrHashInvalid is returned when the declared sha256 is not valid hex.
	ErrHashInvalid = errors.New("plugin manifest has invalid sha256")

	// ErrHashMismatch is returned when the library digest differs from the declared one.
	ErrHashMismatch = errors.New("plugin checksum mismatch")

	// ErrNotFound is returned when executing a plugin that is not registered.
	ErrNotFound = errors.New("plugin not found")

	// ErrExecution is returned when a plugin panics inside the host.
	ErrExecution = errors.New("plugin execution failed")

	// ErrNativeUnsupported is returned on builds without native plugin support.
	ErrNativeUnsupported = errors.New("native plugins are not supported on this platform")
)

// PathError ties a failure kind to the manifest or library path it concerns
type PathError struct {
	Kind error
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v at %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v at %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the kind and the cause
func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func pathError(kind error, path string, err error) error {
	return &PathError{Kind: kind, Path: path, Err: err}
}

// HashMismatchError reports both digests of a failed integrity check
type HashMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("%v at %s: expected %s, got %s", ErrHashMismatch, e.Path, e.Expected, e.Actual)
}

// Is matches ErrHashMismatch
func (e *HashMismatchError) Is(target error) bool {
	return target == ErrHashMismatch
}

// DuplicateNameError names the plugin that was registered twice
type DuplicateNameError struct {
	Name         string
	ManifestPath string
}

func (e *DuplicateNameError) Error() string {
	if e.ManifestPath == "" {
		return fmt.Sprintf("%v: %s", ErrDuplicateName, e.Name)
	}
	return fmt.Sprintf("%v: %s (from %s)", ErrDuplicateName, e.Name, e.ManifestPath)
}

// Is matches ErrDuplicateName
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// ExecutionError is a panic raised inside plugin code, converted at the boundary
type ExecutionError struct {
	Plugin string
	Stage  string // "construct" or "execute"
	Value  interface{}
	Stack  []byte
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%v: %s panicked during %s: %v", ErrExecution, e.Plugin, e.Stage, e.Value)
}

// Is matches ErrExecution
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// Unwrap returns the panic value when it was itself an error
func (e *ExecutionError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
