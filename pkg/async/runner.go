package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/hubcap/pkg/observability"
	"github.com/platinummonkey/hubcap/pkg/plugins"
)

// ErrBusy is returned by Submit when MaxConcurrent runs are already in flight
var ErrBusy = errors.New("runner is at its concurrency limit")

// Executor runs one plugin invocation; *plugins.Registry implements it
type Executor interface {
	ExecutePlugin(ctx context.Context, name string, args []string, ec plugins.ExecContext) error
}

// Recorder persists run outcomes; *history.Store implements it
type Recorder interface {
	RecordSuccess(name string) error
	RecordFailure(name, message string) error
}

// Result is a finished run
type Result struct {
	ID         uuid.UUID
	Plugin     string
	Args       []string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunnerConfig configures a Runner
type RunnerConfig struct {
	MaxConcurrent int // Parallel runs before Submit returns ErrBusy (default: 4)
	ResultBuffer  int // Finished results kept until read (default: 64)
	Logger        *logrus.Logger
	Metrics       *observability.Metrics
}

// DefaultRunnerConfig returns default configuration
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		MaxConcurrent: 4,
		ResultBuffer:  64,
	}
}

// Runner executes plugins on background goroutines so a hung plugin never
// blocks the caller. Every finished run is recorded through the Recorder and
// published on Results.
type Runner struct {
	exec    Executor
	rec     Recorder
	log     *logrus.Logger
	metrics *observability.Metrics

	slots   chan struct{}
	results chan Result
	wg      sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

// NewRunner creates a runner. rec may be nil to skip history.
func NewRunner(exec Executor, rec Recorder, cfg RunnerConfig) *Runner {
	defaults := DefaultRunnerConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaults.MaxConcurrent
	}
	if cfg.ResultBuffer <= 0 {
		cfg.ResultBuffer = defaults.ResultBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Runner{
		exec:    exec,
		rec:     rec,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		slots:   make(chan struct{}, cfg.MaxConcurrent),
		results: make(chan Result, cfg.ResultBuffer),
	}
}

// Submit starts a run and returns its ID immediately
func (r *Runner) Submit(ctx context.Context, name string, args []string, ec plugins.ExecContext) (uuid.UUID, error) {
	select {
	case r.slots <- struct{}{}:
	default:
		return uuid.Nil, fmt.Errorf("%w (%d runs in flight)", ErrBusy, cap(r.slots))
	}

	id := uuid.New()
	argsCopy := append([]string(nil), args...)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.slots }()

		r.finish(r.run(ctx, id, name, argsCopy, ec))
	}()

	r.log.WithFields(logrus.Fields{"run_id": id, "plugin": name}).Debug("Submitted plugin run")
	return id, nil
}

func (r *Runner) run(ctx context.Context, id uuid.UUID, name string, args []string, ec plugins.ExecContext) Result {
	result := Result{ID: id, Plugin: name, Args: args, StartedAt: time.Now()}

	if p := observability.Capture(func() { result.Err = r.exec.ExecutePlugin(ctx, name, args, ec) }); p != nil {
		result.Err = fmt.Errorf("panic running %s: %v", name, p.Value)
	}
	result.FinishedAt = time.Now()
	return result
}

func (r *Runner) finish(result Result) {
	entry := r.log.WithFields(logrus.Fields{
		"run_id":   result.ID,
		"plugin":   result.Plugin,
		"duration": result.Duration(),
	})

	if r.rec != nil {
		var err error
		if result.Err == nil {
			err = r.rec.RecordSuccess(result.Plugin)
		} else {
			err = r.rec.RecordFailure(result.Plugin, result.Err.Error())
		}
		if err != nil {
			r.metrics.RecordHistoryWriteError()
			entry.WithError(err).Warn("Failed to record plugin history")
		}
	}

	if result.Err != nil {
		entry.WithError(result.Err).Info("Plugin run failed")
	} else {
		entry.Info("Plugin run finished")
	}

	select {
	case r.results <- result:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		entry.Warn("Result buffer full, dropping plugin result")
	}
}

// Results delivers finished runs
func (r *Runner) Results() <-chan Result {
	return r.results
}

// Poll drains every finished result without blocking
func (r *Runner) Poll() []Result {
	var out []Result
	for {
		select {
		case res := <-r.results:
			out = append(out, res)
		default:
			return out
		}
	}
}

// Wait blocks until every submitted run has finished or ctx is done
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running returns the number of runs in flight
func (r *Runner) Running() int {
	return len(r.slots)
}

// Dropped returns how many results were discarded because nobody read them
func (r *Runner) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
