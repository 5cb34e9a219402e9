package cli

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hubcap/pkg/events"
	"github.com/platinummonkey/hubcap/pkg/history"
	"github.com/platinummonkey/hubcap/pkg/observability"
	"github.com/platinummonkey/hubcap/pkg/plugins"
)

// testPlugin publishes one progress event per run and returns err
type testPlugin struct {
	name string
	help string
	err  error

	mu   sync.Mutex
	args [][]string
}

func (p *testPlugin) Name() string        { return p.name }
func (p *testPlugin) Description() string { return "test plugin " + p.name }
func (p *testPlugin) Version() string     { return "1.2.3" }
func (p *testPlugin) Author() string      { return "tests" }
func (p *testPlugin) Help() string        { return p.help }

func (p *testPlugin) Execute(ctx context.Context, args []string, ec plugins.ExecContext) error {
	p.mu.Lock()
	p.args = append(p.args, args)
	p.mu.Unlock()

	if ec.Bus != nil {
		ec.Bus.Publish(events.Message{Topic: "progress", Source: p.name, Payload: "halfway"})
	}
	return p.err
}

func (p *testPlugin) lastArgs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.args) == 0 {
		return nil
	}
	return p.args[len(p.args)-1]
}

// openerFor serves each plugin from a library named <name>.so
func openerFor(ps ...*testPlugin) plugins.Opener {
	byLibrary := make(map[string]*testPlugin)
	for _, p := range ps {
		byLibrary[p.name+".so"] = p
	}
	return plugins.OpenerFunc(func(path string) (plugins.Library, error) {
		p, ok := byLibrary[filepath.Base(path)]
		if !ok {
			return nil, fmt.Errorf("not a plugin: %s", path)
		}
		return plugins.Symbols{plugins.DefaultEntrySymbol: func() plugins.Plugin { return p }}, nil
	})
}

// writePlugin creates root/<name>/ with a library and a signed manifest and
// returns the library path
func writePlugin(t *testing.T, root, name string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	content := []byte("library " + name)
	libraryPath := filepath.Join(dir, name+".so")
	require.NoError(t, os.WriteFile(libraryPath, content, 0644))

	sum := sha256.Sum256(content)
	manifest := &plugins.Manifest{
		Name:        name,
		Version:     "1.2.3",
		Description: "test plugin " + name,
		Author:      "tests",
		Library:     name + ".so",
		SHA256:      hex.EncodeToString(sum[:]),
	}
	require.NoError(t, plugins.SaveManifest(manifest, filepath.Join(dir, plugins.ManifestFileName)))
	return libraryPath
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log
}

// newTestApp builds an App over roots with in-memory history; out collects
// command output
func newTestApp(t *testing.T, roots []string, ps ...*testPlugin) (*App, *bytes.Buffer) {
	t.Helper()

	log := quietLogger()
	gatherer := prometheus.NewRegistry()
	metrics := observability.NewMetrics(gatherer)

	registry := plugins.NewRegistry(roots, log)
	registry.SetOpener(openerFor(ps...))
	registry.SetMetrics(metrics)

	out := &bytes.Buffer{}
	return &App{
		Registry:          registry,
		History:           history.NewStore("", log),
		Logger:            log,
		Metrics:           metrics,
		Gatherer:          gatherer,
		MaxConcurrentRuns: 2,
		Out:               out,
	}, out
}
