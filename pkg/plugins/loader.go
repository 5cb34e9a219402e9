package plugins

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

// loader turns a parsed manifest into a loadedPlugin: resolve, verify, open,
// resolve the entry symbol, construct. It is the only code that opens libraries.
type loader struct {
	opener   Opener
	verifier *Verifier
	metrics  *observability.Metrics
	log      *logrus.Logger
}

func newLoader(opener Opener, verifier *Verifier, metrics *observability.Metrics, log *logrus.Logger) *loader {
	return &loader{
		opener:   opener,
		verifier: verifier,
		metrics:  metrics,
		log:      log,
	}
}

// load runs the pipeline for one manifest. registered reports whether a name
// is already taken; duplicates are rejected before the library is opened.
func (l *loader) load(manifestPath string, manifest *Manifest, registered func(name string) bool) (*loadedPlugin, error) {
	libraryPath, err := ResolveLibraryPath(manifest, manifestPath)
	if err != nil {
		return nil, pathError(ErrLoadFailed, manifestPath, fmt.Errorf("failed to resolve library path: %w", err))
	}

	if err := l.verifier.Verify(manifest, manifestPath, libraryPath); err != nil {
		l.metrics.RecordVerificationFailure(verificationReason(err))
		return nil, err
	}

	info, err := os.Stat(libraryPath)
	if err != nil || info.IsDir() {
		return nil, pathError(ErrLibraryMissing, libraryPath, nil)
	}

	if registered(manifest.Name) {
		return nil, &DuplicateNameError{Name: manifest.Name, ManifestPath: manifestPath}
	}

	library, err := l.opener.Open(libraryPath)
	if err != nil {
		return nil, pathError(ErrLoadFailed, libraryPath, err)
	}

	symbol := manifest.EntryPoint()
	sym, err := library.Lookup(symbol)
	if err != nil {
		return nil, pathError(ErrLoadFailed, libraryPath, err)
	}

	ctor, err := constructor(symbol, sym)
	if err != nil {
		return nil, pathError(ErrLoadFailed, libraryPath, err)
	}

	instance, err := guardConstruct(manifest.Name, ctor)
	if err != nil {
		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			return nil, err
		}
		return nil, pathError(ErrLoadFailed, libraryPath, err)
	}
	if instance == nil {
		return nil, pathError(ErrLoadFailed, libraryPath, fmt.Errorf("entry symbol %s returned a nil plugin", symbol))
	}

	l.log.WithFields(logrus.Fields{
		"plugin":  manifest.Name,
		"version": manifest.Version,
		"library": libraryPath,
	}).Info("Loaded plugin")

	return &loadedPlugin{
		descriptor: Descriptor{Metadata: newMetadata(manifest, manifestPath, libraryPath)},
		instance:   instance,
		library:    library,
	}, nil
}

func verificationReason(err error) string {
	switch {
	case errors.Is(err, ErrHashMissing):
		return "hash_missing"
	case errors.Is(err, ErrHashInvalid):
		return "hash_invalid"
	case errors.Is(err, ErrHashMismatch):
		return "hash_mismatch"
	case errors.Is(err, ErrLibraryMissing):
		return "library_missing"
	default:
		return "io_error"
	}
}
