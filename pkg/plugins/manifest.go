package plugins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadManifest loads and parses a plugin manifest from a file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pathError(ErrManifestUnparsable, path, fmt.Errorf("failed to read manifest: %w", err))
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, pathError(ErrManifestUnparsable, path, err)
	}

	if err := ValidateManifest(&manifest); err != nil {
		return nil, pathError(ErrManifestUnparsable, path, err)
	}

	return &manifest, nil
}

// LoadManifestFromDir loads a plugin manifest from a directory (looks for ManifestFileName)
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFileName))
}

// SaveManifest saves a plugin manifest to a file
func SaveManifest(manifest *Manifest, path string) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// ValidateManifest checks the fields a manifest cannot do without
func ValidateManifest(manifest *Manifest) error {
	var errs []error
	if manifest.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if manifest.Version == "" {
		errs = append(errs, errors.New("version is required"))
	}
	if manifest.Description == "" {
		errs = append(errs, errors.New("description is required"))
	}
	if manifest.Author == "" {
		errs = append(errs, errors.New("author is required"))
	}
	if manifest.Library == "" {
		errs = append(errs, errors.New("library is required"))
	}
	return errors.Join(errs...)
}

// ResolveLibraryPath returns the absolute library path for a manifest.
// Relative library paths are resolved against the manifest's directory.
func ResolveLibraryPath(manifest *Manifest, manifestPath string) (string, error) {
	if filepath.IsAbs(manifest.Library) {
		return filepath.Clean(manifest.Library), nil
	}

	base := filepath.Dir(manifestPath)
	if base == "" {
		base = "."
	}
	return filepath.Abs(filepath.Join(base, manifest.Library))
}
