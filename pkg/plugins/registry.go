package plugins

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

const tracerName = "github.com/platinummonkey/hubcap/pkg/plugins"

// Registry discovers, verifies, loads and executes plugins.
//
// Registries are independent values; create as many as needed. Load replaces
// the whole plugin set, so callers that reload concurrently with other
// writers should serialize those calls themselves.
type Registry struct {
	mu          sync.RWMutex
	searchPaths []string
	plugins     map[string]*loadedPlugin
	policy      SecurityPolicy
	opener      Opener
	builtins    []BuiltinPlugin
	metrics     *observability.Metrics
	tracer      trace.Tracer
	log         *logrus.Logger
}

// NewRegistry creates a registry with the given search paths and a strict
// security policy. A nil logger gets a default logrus logger.
func NewRegistry(searchPaths []string, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}

	paths := make([]string, len(searchPaths))
	copy(paths, searchPaths)

	return &Registry{
		searchPaths: paths,
		plugins:     make(map[string]*loadedPlugin),
		policy:      DefaultPolicy(),
		opener:      NativeOpener{},
		tracer:      otel.Tracer(tracerName),
		log:         log,
	}
}

// NewDefaultRegistry creates a registry over DefaultSearchPaths
func NewDefaultRegistry(log *logrus.Logger) *Registry {
	return NewRegistry(DefaultSearchPaths(), log)
}

// SetSecurityPolicy overrides the security policy used by subsequent loads
func (r *Registry) SetSecurityPolicy(policy SecurityPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = policy
}

// SecurityPolicy returns the current security policy
func (r *Registry) SecurityPolicy() SecurityPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// SetOpener replaces the library opener (NativeOpener by default)
func (r *Registry) SetOpener(opener Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opener = opener
}

// SetMetrics attaches Prometheus metrics
func (r *Registry) SetMetrics(metrics *observability.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = metrics
}

// SetBuiltins sets plugins that are registered in-process on every load,
// ahead of any manifest. They are not counted by Load.
func (r *Registry) SetBuiltins(builtins []BuiltinPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtins = builtins
}

// SearchPaths returns a copy of the configured search paths
func (r *Registry) SearchPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, len(r.searchPaths))
	copy(paths, r.searchPaths)
	return paths
}

// AddSearchPath appends a search path. Nothing is read until Load.
func (r *Registry) AddSearchPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchPaths = append(r.searchPaths, path)
}

// Load clears the registry and loads every manifest in the search paths.
// It returns the number of plugins loaded from manifests. The first failure
// aborts the pass and leaves the registry empty.
func (r *Registry) Load(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "plugins.Load")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	count, err := r.loadLocked(ctx)
	r.metrics.RecordLoad(count, time.Since(start), err)

	if err != nil {
		r.plugins = make(map[string]*loadedPlugin)
		r.metrics.SetRegistered(0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.WithError(err).Warn("Plugin load aborted")
		return 0, err
	}

	r.metrics.SetRegistered(len(r.plugins))
	span.SetAttributes(attribute.Int("plugins.loaded", count))
	r.log.Infof("Loaded %d plugins from %d search paths", count, len(r.searchPaths))
	return count, nil
}

func (r *Registry) loadLocked(ctx context.Context) (int, error) {
	r.plugins = make(map[string]*loadedPlugin)

	for _, b := range r.builtins {
		if _, exists := r.plugins[b.Descriptor.Name()]; exists {
			return 0, &DuplicateNameError{Name: b.Descriptor.Name()}
		}
		r.plugins[b.Descriptor.Name()] = &loadedPlugin{
			descriptor: b.Descriptor,
			instance:   b.Instance,
		}
	}

	ldr := newLoader(r.opener, NewVerifier(r.policy, r.log), r.metrics, r.log)
	registered := func(name string) bool {
		_, exists := r.plugins[name]
		return exists
	}

	count := 0
	for _, root := range r.searchPaths {
		r.log.Debugf("Scanning plugin directory %s", root)

		err := walkManifests(root, func(manifestPath string) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			manifest, err := LoadManifest(manifestPath)
			if err != nil {
				return err
			}

			lp, err := ldr.load(manifestPath, manifest, registered)
			if err != nil {
				return err
			}

			r.plugins[manifest.Name] = lp
			count++
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	return count, nil
}

// Descriptors returns a snapshot of registered plugins sorted by name
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, 0, len(r.plugins))
	for _, lp := range r.plugins {
		result = append(result, lp.descriptor)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Metadata.Name < result[j].Metadata.Name
	})
	return result
}

// Descriptor returns the descriptor for one plugin
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lp, exists := r.plugins[name]
	if !exists {
		return Descriptor{}, false
	}
	return lp.descriptor, true
}

// HelpFor returns the plugin's self-reported help text
func (r *Registry) HelpFor(name string) (string, bool) {
	r.mu.RLock()
	lp, exists := r.plugins[name]
	r.mu.RUnlock()

	if !exists {
		return "", false
	}
	return guardString(lp.instance.Help)
}

// ExecutePlugin runs a registered plugin and returns its result unchanged.
// Panics inside the plugin come back as *ExecutionError. The call may block
// for as long as the plugin runs; the registry is not locked meanwhile.
func (r *Registry) ExecutePlugin(ctx context.Context, name string, args []string, ec ExecContext) error {
	ctx, span := r.tracer.Start(ctx, "plugins.Execute",
		trace.WithAttributes(attribute.String("plugin.name", name), attribute.Int("plugin.args", len(args))))
	defer span.End()

	r.mu.RLock()
	lp, exists := r.plugins[name]
	metrics := r.metrics
	r.mu.RUnlock()

	if !exists {
		err := fmt.Errorf("%w: %s", ErrNotFound, name)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	done := metrics.ExecutionStarted()
	defer done()

	start := time.Now()
	err := guardExecute(name, func() error {
		return lp.instance.Execute(ctx, args, ec)
	})
	metrics.RecordExecution(name, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.WithTraceContext(ctx, r.log.WithField("plugin", name)).
			WithError(err).Debug("Plugin execution failed")
	}
	return err
}

// Len returns the number of registered plugins
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Clear drops every registered plugin together with its library handle
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plugins = make(map[string]*loadedPlugin)
	r.metrics.SetRegistered(0)
}
