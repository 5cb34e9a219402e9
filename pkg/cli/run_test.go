package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hubcap/pkg/plugins"
)

func TestRun_Success(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "hello")
	plugin := &testPlugin{name: "hello"}

	app, out := newTestApp(t, []string{root}, plugin)

	err := NewRootCommand(app).ExecuteArgs(context.Background(), []string{"run", "hello", "--loud", "world"})
	require.NoError(t, err)

	assert.Equal(t, []string{"--loud", "world"}, plugin.lastArgs())
	assert.Contains(t, out.String(), "[progress] halfway")

	stats, ok := app.History.StatsFor("hello")
	require.True(t, ok)
	assert.Equal(t, uint64(1), stats.Successes)
	assert.Equal(t, uint64(0), stats.Failures)
	assert.Nil(t, stats.LastStatus)
}

func TestRun_PluginError(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "hello")
	pluginErr := errors.New("no greeting configured")

	app, _ := newTestApp(t, []string{root}, &testPlugin{name: "hello", err: pluginErr})

	err := runPlugin(context.Background(), app, "hello", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pluginErr))
	assert.Contains(t, err.Error(), "plugin hello failed")

	stats, ok := app.History.StatsFor("hello")
	require.True(t, ok)
	assert.Equal(t, uint64(1), stats.Failures)
	require.NotNil(t, stats.LastStatus)
	assert.Equal(t, "no greeting configured", *stats.LastStatus)
}

func TestRun_NotFound(t *testing.T) {
	app, _ := newTestApp(t, []string{t.TempDir()})

	err := runPlugin(context.Background(), app, "ghost", nil)
	assert.True(t, errors.Is(err, plugins.ErrNotFound))

	// Unknown names never reach the history file
	assert.Empty(t, app.History.Names())
}

func TestRun_MissingName(t *testing.T) {
	app, _ := newTestApp(t, nil)

	err := NewRootCommand(app).ExecuteArgs(context.Background(), []string{"run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin name required")
}

func TestRun_WithoutHistory(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "hello")

	app, _ := newTestApp(t, []string{root}, &testPlugin{name: "hello"})
	app.History = nil

	assert.NoError(t, runPlugin(context.Background(), app, "hello", nil))
}

func TestRun_Builtin(t *testing.T) {
	app, _ := newTestApp(t, nil)
	app.Registry.SetBuiltins([]plugins.BuiltinPlugin{{
		Descriptor: plugins.Descriptor{Metadata: plugins.Metadata{Name: "hello"}, Builtin: true},
		Instance:   &testPlugin{name: "hello"},
	}})

	require.NoError(t, runPlugin(context.Background(), app, "hello", nil))

	stats, ok := app.History.StatsFor("hello")
	require.True(t, ok)
	assert.Equal(t, uint64(1), stats.Successes)
}
