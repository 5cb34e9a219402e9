package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DiscoveredManifest is a manifest found on disk together with its location
type DiscoveredManifest struct {
	Path     string
	Manifest *Manifest
}

// Discover scans the given search paths and parses every manifest found.
// It stops at the first manifest that cannot be parsed.
func Discover(ctx context.Context, paths []string) ([]DiscoveredManifest, error) {
	var found []DiscoveredManifest

	for _, root := range paths {
		err := walkManifests(root, func(manifestPath string) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			manifest, err := LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			found = append(found, DiscoveredManifest{Path: manifestPath, Manifest: manifest})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return found, nil
}

// walkManifests calls fn for every manifest under root, in lexical entry order.
// A manifest is either root/<dir>/ManifestFileName or a top-level ManifestFileName.
// Roots that do not exist or are not directories are skipped.
func walkManifests(root string, fn func(manifestPath string) error) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read plugin directory %s: %w", root, err)
	}

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		if isDirEntry(path, entry) {
			manifestPath := filepath.Join(path, ManifestFileName)
			if fi, err := os.Stat(manifestPath); err == nil && fi.Mode().IsRegular() {
				if err := fn(absPath(manifestPath)); err != nil {
					return err
				}
			}
			continue
		}

		if entry.Name() == ManifestFileName {
			if err := fn(absPath(path)); err != nil {
				return err
			}
		}
	}

	return nil
}

// isDirEntry reports whether entry is a directory, following symlinks
func isDirEntry(path string, entry os.DirEntry) bool {
	if entry.Type()&os.ModeSymlink != 0 {
		fi, err := os.Stat(path)
		return err == nil && fi.IsDir()
	}
	return entry.IsDir()
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// DefaultSearchPaths returns the default plugin search directories.
// Every entry is optional; missing directories are skipped at load time.
func DefaultSearchPaths() []string {
	var paths []string

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".hubcap", "plugins"))
	}

	if data := userDataDir(); data != "" {
		paths = append(paths, filepath.Join(data, "hubcap", "plugins"))
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, "/usr/local/share/hubcap/plugins")
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, "plugins"))
	}

	return paths
}

// userDataDir mirrors the per-OS data directory conventions
func userDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return os.Getenv("LOCALAPPDATA")
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
		return ""
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return xdg
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "share")
		}
		return ""
	}
}
