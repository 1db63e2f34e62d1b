package population

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/san-kum/popsim/internal/engine"
)

func pkDefinition() *engine.Definition {
	return &engine.Definition{
		Name:           "Trial",
		Model:          "pk",
		Integrator:     "rk4",
		Dt:             0.05,
		Duration:       2,
		OutputInterval: 0.5,
		Outputs:        []string{"Plasma"},
	}
}

// clearances builds a population varying Organism|Clearance for ids 1..n.
func clearances(n int) *ValueTable {
	t := NewValueTable("Organism|Clearance")
	for id := 1; id <= n; id++ {
		_ = t.AddRow(id, float64(id))
	}
	return t
}

type countingExporter struct {
	calls atomic.Int32
	inner engine.Exporter
}

func (e *countingExporter) Export(ctx context.Context, def *engine.Definition, mode engine.ExportMode) (engine.Description, error) {
	e.calls.Add(1)
	return e.inner.Export(ctx, def, mode)
}

// recorder is an Observer that keeps every notification.
type recorder struct {
	mu         sync.Mutex
	progress   []int
	totals     []int
	terminated int
}

func (r *recorder) Progress(processed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, processed)
	r.totals = append(r.totals, total)
}

func (r *recorder) Terminated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminated++
}

func (r *recorder) snapshot() ([]int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress...), r.terminated
}

// gatedFactory hands out real simulations whose Run blocks until release is
// closed. started receives once per Run call.
type gatedFactory struct {
	started chan struct{}
	release chan struct{}
}

func newGatedFactory() *gatedFactory {
	return &gatedFactory{started: make(chan struct{}, 1024), release: make(chan struct{})}
}

func (f *gatedFactory) CreateEngine(desc engine.Description) (engine.Handle, error) {
	h, err := engine.ODEFactory{}.CreateEngine(desc)
	if err != nil {
		return nil, err
	}
	return &gatedHandle{Handle: h, f: f}, nil
}

type gatedHandle struct {
	engine.Handle
	f *gatedFactory
}

func (h *gatedHandle) Run() error {
	h.f.started <- struct{}{}
	<-h.f.release
	return h.Handle.Run()
}

type panicFactory struct{}

func (panicFactory) CreateEngine(desc engine.Description) (engine.Handle, error) {
	h, err := engine.ODEFactory{}.CreateEngine(desc)
	if err != nil {
		return nil, err
	}
	return panicHandle{h}, nil
}

type panicHandle struct{ engine.Handle }

func (panicHandle) Run() error { panic("solver exploded") }

// stubHandle reports canned output.
type stubHandle struct {
	engine.Handle
	times  []float64
	values []engine.Values
}

func (s stubHandle) Times() []float64        { return s.times }
func (s stubHandle) Values() []engine.Values { return s.values }
