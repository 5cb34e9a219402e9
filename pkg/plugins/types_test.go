package plugins

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/hubcap/pkg/events"
)

func TestSecurityPolicies(t *testing.T) {
	assert.True(t, StrictPolicy().RequireHash)
	assert.False(t, PermissivePolicy().RequireHash)
	assert.Equal(t, StrictPolicy(), DefaultPolicy())
}

func TestNewExecContext(t *testing.T) {
	bus := events.NewBus(1)
	defer bus.Close()

	ec := NewExecContext(bus)
	assert.Same(t, bus, ec.Bus)
	assert.Nil(t, NewExecContext(nil).Bus)
}

func TestNewMetadata(t *testing.T) {
	m := &Manifest{
		Name:        "hello",
		Version:     "1.0.0",
		Description: "desc",
		Author:      "me",
		Help:        "help",
		Homepage:    "https://example.com",
		Library:     "hello.so",
	}

	md := newMetadata(m, "/p/hello/hubcap-plugin.yaml", "/p/hello/hello.so")
	assert.Equal(t, Metadata{
		Name:         "hello",
		Version:      "1.0.0",
		Description:  "desc",
		Author:       "me",
		Help:         "help",
		Homepage:     "https://example.com",
		ManifestPath: "/p/hello/hubcap-plugin.yaml",
		LibraryPath:  "/p/hello/hello.so",
	}, md)
	assert.Equal(t, "hello", Descriptor{Metadata: md}.Name())
}

func TestErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("cause")

	pe := pathError(ErrLoadFailed, "/lib.so", cause)
	assert.True(t, errors.Is(pe, ErrLoadFailed))
	assert.True(t, errors.Is(pe, cause))
	assert.False(t, errors.Is(pe, ErrLibraryMissing))
	assert.Equal(t, "failed to load plugin at /lib.so: cause", pe.Error())
	assert.Equal(t, "plugin library missing at /x", pathError(ErrLibraryMissing, "/x", nil).Error())

	assert.True(t, errors.Is(&HashMismatchError{}, ErrHashMismatch))
	assert.True(t, errors.Is(&DuplicateNameError{Name: "x"}, ErrDuplicateName))
	assert.Equal(t, "duplicate plugin name: x", (&DuplicateNameError{Name: "x"}).Error())

	ee := &ExecutionError{Plugin: "p", Stage: "execute", Value: "boom"}
	assert.True(t, errors.Is(ee, ErrExecution))
	assert.Nil(t, ee.Unwrap())
	assert.Contains(t, ee.Error(), "p panicked during execute: boom")
}
