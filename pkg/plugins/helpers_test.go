package plugins

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// stubPlugin is an in-process Plugin used across the package tests
type stubPlugin struct {
	name    string
	help    string
	execErr error
	panics  interface{}

	mu    sync.Mutex
	calls [][]string
}

func (p *stubPlugin) Name() string        { return p.name }
func (p *stubPlugin) Description() string { return "stub " + p.name }
func (p *stubPlugin) Version() string     { return "1.0.0" }
func (p *stubPlugin) Author() string      { return "tests" }
func (p *stubPlugin) Help() string {
	if p.panics != nil {
		panic(p.panics)
	}
	return p.help
}

func (p *stubPlugin) Execute(ctx context.Context, args []string, ec ExecContext) error {
	p.mu.Lock()
	p.calls = append(p.calls, args)
	p.mu.Unlock()

	if p.panics != nil {
		panic(p.panics)
	}
	return p.execErr
}

func (p *stubPlugin) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// fakeOpener serves Symbols keyed by library path and records every Open
type fakeOpener struct {
	mu        sync.Mutex
	libraries map[string]Symbols
	opened    []string
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{libraries: make(map[string]Symbols)}
}

func (o *fakeOpener) add(path string, syms Symbols) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.libraries[path] = syms
}

func (o *fakeOpener) Open(path string) (Library, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opened = append(o.opened, path)
	syms, ok := o.libraries[path]
	if !ok {
		return nil, fmt.Errorf("not a plugin: %s", path)
	}
	return syms, nil
}

func (o *fakeOpener) openedPaths() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

type pluginFixture struct {
	dir          string
	manifestPath string
	libraryPath  string
	digest       string
}

// writePluginDir creates root/<dirName>/ with a library file holding content
// and a manifest for name. When withHash is set the manifest carries the
// library's real digest.
func writePluginDir(t *testing.T, root, dirName, name string, content []byte, withHash bool) pluginFixture {
	t.Helper()

	dir := filepath.Join(root, dirName)
	require.NoError(t, os.MkdirAll(dir, 0755))

	libraryPath := filepath.Join(dir, name+".so")
	require.NoError(t, os.WriteFile(libraryPath, content, 0644))

	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])

	manifest := &Manifest{
		Name:        name,
		Version:     "1.0.0",
		Description: "test plugin " + name,
		Author:      "tests",
		Library:     name + ".so",
	}
	if withHash {
		manifest.SHA256 = digest
	}

	manifestPath := filepath.Join(dir, ManifestFileName)
	require.NoError(t, SaveManifest(manifest, manifestPath))

	absManifest, err := filepath.Abs(manifestPath)
	require.NoError(t, err)
	absLibrary, err := filepath.Abs(libraryPath)
	require.NoError(t, err)

	return pluginFixture{
		dir:          dir,
		manifestPath: absManifest,
		libraryPath:  absLibrary,
		digest:       digest,
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestRegistry(paths []string, opener Opener) *Registry {
	r := NewRegistry(paths, quietLogger())
	r.SetOpener(opener)
	return r
}

func constructorFor(p Plugin) func() Plugin {
	return func() Plugin { return p }
}
