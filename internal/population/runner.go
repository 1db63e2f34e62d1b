package population

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/popsim/internal/engine"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Option func(*Runner)

func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) { r.log = log }
}

// WithObserver registers o for progress and termination notifications. A
// nil observer is ignored.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithExportMode selects how much the exported model reports. The default
// is engine.ExportOptimized.
func WithExportMode(mode engine.ExportMode) Option {
	return func(r *Runner) { r.mode = mode }
}

// Runner executes population runs, one at a time.
type Runner struct {
	exporter engine.Exporter
	factory  engine.Factory
	observer Observer
	log      logrus.FieldLogger
	mode     engine.ExportMode

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc

	processed atomic.Int64
}

func NewRunner(exporter engine.Exporter, factory engine.Factory, opts ...Option) *Runner {
	r := &Runner{
		exporter: exporter,
		factory:  factory,
		observer: ObserverFuncs{},
		log:      logrus.StandardLogger(),
		mode:     engine.ExportOptimized,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunPopulation simulates every individual of population on cores parallel
// workers. aging and initial may be nil. Individual solver failures are part
// of the returned results; configuration errors, cancellation and worker
// panics return an error and no results.
func (r *Runner) RunPopulation(ctx context.Context, def *engine.Definition, population *ValueTable, aging *AgingTable, initial *ValueTable, cores int) (*RunResults, error) {
	runCtx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.finish()

	res, err := r.run(runCtx, def, population, aging, initial, cores)
	if err != nil && runCtx.Err() != nil &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		r.log.Info("population run canceled")
		return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	if err != nil {
		r.log.WithError(err).Error("population run failed")
		return nil, err
	}
	return res, nil
}

// Stop cancels the run in progress, if any. Individuals already running
// finish; no new individual starts.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Running reports whether a run is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) begin(ctx context.Context) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil, ErrRunInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.processed.Store(0)
	return runCtx, nil
}

func (r *Runner) finish() {
	r.mu.Lock()
	r.cancel()
	r.cancel = nil
	r.running = false
	r.mu.Unlock()

	r.observer.Terminated()
}

func (r *Runner) run(ctx context.Context, def *engine.Definition, population *ValueTable, aging *AgingTable, initial *ValueTable, cores int) (*RunResults, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil simulation", ErrConfiguration)
	}
	if cores < 1 {
		cores = 1
	}

	splitter, err := NewSplitter(population, aging, initial, cores)
	if err != nil {
		return nil, err
	}
	total := splitter.IndividualCount()

	desc, err := r.exporter.Export(ctx, def, r.mode)
	if err != nil {
		return nil, fmt.Errorf("export simulation: %w", err)
	}

	log := r.log.WithFields(logrus.Fields{"simulation": def.Name, "individuals": total, "cores": cores})
	log.Info("population run started")
	start := time.Now()

	results := NewResults()
	progress := func() {
		r.observer.Progress(int(r.processed.Add(1)), total)
	}

	g, gctx := errgroup.WithContext(ctx)
	for core := 0; core < cores; core++ {
		w := &worker{
			core:           core,
			simulationName: def.Name,
			splitter:       splitter,
			results:        results,
			progress:       progress,
			log:            log.WithField("core", core),
		}
		g.Go(func() error { return w.run(gctx, r.factory, desc) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := results.Finalize()
	log.WithFields(logrus.Fields{
		"failures": len(out.Failures),
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("population run finished")
	return out, nil
}
