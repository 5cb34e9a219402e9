package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/hubcap/pkg/async"
	"github.com/platinummonkey/hubcap/pkg/httputil"
	"github.com/platinummonkey/hubcap/pkg/observability"
	"github.com/platinummonkey/hubcap/pkg/plugins"
)

// Rapid bursts of changes (a build writing a library) collapse into one reload
const defaultDebounce = 500 * time.Millisecond

func newWatchCommand(app *App) *Command {
	fs := newFlagSet("watch", "watch [--metrics-addr addr]", app.out())
	metricsAddr := fs.String("metrics-addr", app.MetricsAddr, "Address to serve /metrics and /plugins on (empty disables)")

	return &Command{
		Name:        "watch",
		Description: "Reload plugins when search paths change and serve metrics",
		Usage:       "watch [--metrics-addr addr]",
		Flags:       fs,
		Run: func(ctx context.Context, args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}
			return runWatch(ctx, app, *metricsAddr)
		},
	}
}

func runWatch(ctx context.Context, app *App, metricsAddr string) error {
	log := app.logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r, err := newReloader(app, defaultDebounce)
	if err != nil {
		return err
	}
	r.reload(ctx)

	var server *http.Server
	if metricsAddr != "" {
		server = newStatusServer(app, metricsAddr)
		async.SafeGo(ctx, log, 0, "status-server", func(context.Context) error {
			log.Infof("Serving /metrics and /plugins on %s", metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
	}

	sm := observability.NewShutdownManager(log, server, app.ShutdownTimeout)
	sm.RegisterShutdownFunc(func(context.Context) error {
		cancel()
		return r.Close()
	})

	async.SafeGoNoError(ctx, log, 0, "plugin-watcher", r.run)

	fmt.Fprintf(app.out(), "Watching %d search paths, press Ctrl+C to stop\n", r.watched)
	return sm.WaitForShutdown(ctx)
}

// newStatusServer exposes Prometheus metrics and a read-only view of the registry
func newStatusServer(app *App, addr string) *http.Server {
	mux := http.NewServeMux()
	if app.Gatherer != nil {
		mux.Handle("GET /metrics", observability.Handler(app.Gatherer))
	}
	mux.HandleFunc("GET /plugins", func(w http.ResponseWriter, r *http.Request) {
		descriptors := app.Registry.Descriptors()
		infos := make([]PluginInfo, 0, len(descriptors))
		for _, d := range descriptors {
			infos = append(infos, app.pluginInfo(d))
		}
		_ = httputil.WriteJSON(w, http.StatusOK, infos)
	})
	mux.HandleFunc("GET /plugins/{name}", func(w http.ResponseWriter, r *http.Request) {
		d, ok := app.Registry.Descriptor(r.PathValue("name"))
		if !ok {
			httputil.WriteNotFoundError(w, fmt.Sprintf("%s: %s", plugins.ErrNotFound, r.PathValue("name")))
			return
		}
		_ = httputil.WriteJSON(w, http.StatusOK, app.pluginInfo(d))
	})

	log := app.logger()
	return &http.Server{
		Addr: addr,
		Handler: httputil.Chain(
			httputil.RequestIDMiddleware,
			httputil.RecoveryMiddleware(log),
			httputil.LoggingMiddleware(log),
		)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// reloader reloads the registry after filesystem changes under the search paths.
// Manifests live one level below a root, so roots and their direct
// subdirectories are watched.
type reloader struct {
	app      *App
	log      *logrus.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration
	roots    map[string]bool
	watched  int
	reloads  atomic.Int64
}

func newReloader(app *App, debounce time.Duration) (*reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	r := &reloader{
		app:      app,
		log:      app.logger(),
		watcher:  watcher,
		debounce: debounce,
		roots:    make(map[string]bool),
	}

	for _, root := range app.Registry.SearchPaths() {
		root = filepath.Clean(root)
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			r.log.WithField("path", root).Debug("Search path does not exist, not watching")
			continue
		}
		if err := r.watchRoot(root); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return r, nil
}

func (r *reloader) watchRoot(root string) error {
	if err := r.watcher.Add(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	r.roots[root] = true
	r.watched++

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", root, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			r.addDir(filepath.Join(root, entry.Name()))
		}
	}
	return nil
}

func (r *reloader) addDir(dir string) {
	if err := r.watcher.Add(dir); err != nil {
		r.log.WithError(err).WithField("path", dir).Warn("Error watching plugin directory")
	}
}

// run processes events until ctx is done or the watcher closes
func (r *reloader) run(ctx context.Context) {
	var pending <-chan time.Time
	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			r.log.WithFields(logrus.Fields{"path": event.Name, "op": event.Op.String()}).Debug("Search path changed")

			if event.Has(fsnotify.Create) && r.roots[filepath.Dir(event.Name)] {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					r.addDir(event.Name)
				}
			}

			timer.Reset(r.debounce)
			pending = timer.C

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.WithError(err).Warn("Watcher error")

		case <-pending:
			pending = nil
			r.reload(ctx)
		}
	}
}

func (r *reloader) reload(ctx context.Context) {
	defer r.reloads.Add(1)

	count, err := r.app.Registry.Load(ctx)
	if err != nil {
		r.log.WithError(err).Warn("Plugin reload failed, no plugins are registered until the next change")
		return
	}
	r.log.Infof("Loaded %d plugins", count)
}

// Close stops watching
func (r *reloader) Close() error {
	return r.watcher.Close()
}
