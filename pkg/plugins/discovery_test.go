package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_LexicalOrder(t *testing.T) {
	root := t.TempDir()
	writePluginDir(t, root, "charlie", "c", []byte("c"), true)
	writePluginDir(t, root, "alpha", "a", []byte("a"), true)
	writePluginDir(t, root, "bravo", "b", []byte("b"), true)

	found, err := Discover(context.Background(), []string{root})
	require.NoError(t, err)

	var names []string
	for _, dm := range found {
		names = append(names, dm.Manifest.Name)
		assert.True(t, filepath.IsAbs(dm.Path))
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestDiscover_TopLevelManifest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, SaveManifest(&Manifest{
		Name:        "top",
		Version:     "1.0.0",
		Description: "top-level plugin",
		Author:      "tests",
		Library:     "top.so",
	}, filepath.Join(root, ManifestFileName)))
	writePluginDir(t, root, "nested", "nested", []byte("n"), true)

	found, err := Discover(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, found, 2)

	// hubcap-plugin.yaml sorts before "nested"
	assert.Equal(t, "top", found[0].Manifest.Name)
	assert.Equal(t, "nested", found[1].Manifest.Name)
}

func TestDiscover_IgnoresUnrelatedEntries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# plugins"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "deep", "deeper"), 0755))
	require.NoError(t, SaveManifest(&Manifest{Name: "deep", Library: "x.so"},
		filepath.Join(root, "deep", "deeper", ManifestFileName)))

	found, err := Discover(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Empty(t, found, "only immediate subdirectories are scanned")
}

func TestDiscover_SymlinkedPluginDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}

	root := t.TempDir()
	fx := writePluginDir(t, t.TempDir(), "real", "linked", []byte("l"), true)
	require.NoError(t, os.Symlink(fx.dir, filepath.Join(root, "linked")))

	// A dangling link is ignored
	require.NoError(t, os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "broken")))

	found, err := Discover(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "linked", found[0].Manifest.Name)
	assert.Equal(t, filepath.Join(root, "linked", ManifestFileName), found[0].Path)
}

func TestDiscover_MissingAndFileRoots(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	found, err := Discover(context.Background(), []string{filepath.Join(t.TempDir(), "missing"), file})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDiscover_FailFast(t *testing.T) {
	root := t.TempDir()
	writePluginDir(t, root, "a", "a", []byte("a"), true)
	broken := writePluginDir(t, root, "b", "b", []byte("b"), true)
	require.NoError(t, writeFile(broken.manifestPath, ":::"))
	writePluginDir(t, root, "c", "c", []byte("c"), true)

	found, err := Discover(context.Background(), []string{root})
	assert.Nil(t, found)
	assert.True(t, errors.Is(err, ErrManifestUnparsable))
}

func TestDiscover_MultipleRootsInOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writePluginDir(t, first, "z", "from-first", []byte("1"), true)
	writePluginDir(t, second, "a", "from-second", []byte("2"), true)

	found, err := Discover(context.Background(), []string{first, second})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "from-first", found[0].Manifest.Name)
	assert.Equal(t, "from-second", found[1].Manifest.Name)
}

func TestDefaultSearchPaths(t *testing.T) {
	paths := DefaultSearchPaths()
	require.NotEmpty(t, paths)

	home, err := os.UserHomeDir()
	if err == nil {
		assert.Equal(t, filepath.Join(home, ".hubcap", "plugins"), paths[0])
	}

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "plugins"), paths[len(paths)-1])

	if runtime.GOOS != "windows" {
		assert.Contains(t, paths, "/usr/local/share/hubcap/plugins")
	}
}

func TestUserDataDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_DATA_HOME only applies on unix-like systems")
	}

	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data", userDataDir())
	assert.Contains(t, DefaultSearchPaths(), filepath.Join("/custom/data", "hubcap", "plugins"))
}
