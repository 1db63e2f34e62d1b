package dynamo

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

type decay struct{ rate float64 }

func (d *decay) Derive(x State, t float64) State { return State{-d.rate * x[0]} }
func (d *decay) StateDim() int                   { return 1 }

type eulerStep struct{}

func (eulerStep) Step(dyn System, x State, t, dt float64) State {
	dx := dyn.Derive(x, t)
	return State{x[0] + dt*dx[0]}
}

// pickyStep rejects every step wider than limit.
type pickyStep struct {
	eulerStep
	limit float64
}

func (p pickyStep) StepAdaptive(dyn System, x State, t, dt, tol float64) (State, float64, bool) {
	if dt > p.limit {
		return x, dt / 2, false
	}
	return p.Step(dyn, x, t, dt), dt, true
}

func TestSimulatorRun(t *testing.T) {
	sim := New(&decay{rate: 1}, eulerStep{})

	cfg := Config{Dt: 0.01, Duration: 1.0, OutputInterval: 0.1}
	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}
	if result.StepsTaken != 100 {
		t.Errorf("expected 100 steps, got %d", result.StepsTaken)
	}

	finalState := result.States[len(result.States)-1][0]
	expected := math.Exp(-1.0)
	if math.Abs(finalState-expected) > 0.01 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, finalState)
	}
}

func TestSimulatorHitsOutputTimes(t *testing.T) {
	sim := New(&decay{rate: 1}, eulerStep{})

	cfg := Config{Dt: 0.3, Duration: 1.0, OutputInterval: 0.25}
	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := []float64{0, 0.25, 0.5, 0.75, 1.0}
	if len(result.Times) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(result.Times))
	}
	for i := range want {
		if math.Abs(result.Times[i]-want[i]) > 1e-12 {
			t.Errorf("sample %d: time %v, want %v", i, result.Times[i], want[i])
		}
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(&decay{rate: 1}, eulerStep{})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0, OutputInterval: 0.1}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0, OutputInterval: 0.1}},
		{"zero duration", Config{Dt: 0.1, Duration: 0, OutputInterval: 0.1}},
		{"zero interval", Config{Dt: 0.1, Duration: 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), State{1.0}, tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSimulatorDimensionMismatch(t *testing.T) {
	sim := New(&decay{rate: 1}, eulerStep{})
	_, err := sim.Run(context.Background(), State{1, 2}, DefaultConfig())
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSimulatorInvalidState(t *testing.T) {
	sim := New(&decay{rate: math.Inf(1)}, eulerStep{})

	cfg := Config{Dt: 0.1, Duration: 1.0, OutputInterval: 0.5, ValidateState: true}
	_, err := sim.Run(context.Background(), State{1.0}, cfg)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected *SimulationError, got %T", err)
	}
	if simErr.Step != 1 {
		t.Errorf("expected failure at step 1, got %d", simErr.Step)
	}
}

func TestSimulatorAdaptiveClampWarning(t *testing.T) {
	sim := New(&decay{rate: 1}, pickyStep{limit: 1e-3})

	cfg := Config{Dt: 0.1, Duration: 0.1, OutputInterval: 0.1, Tolerance: 1e-6, MinDt: 0.01, MaxDt: 0.1}
	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], ErrStepTooSmall.Error()) {
		t.Errorf("unexpected warning %q", result.Warnings[0])
	}
}

func TestSimulatorBeforeStep(t *testing.T) {
	d := &decay{rate: 0}
	sim := New(d, eulerStep{})

	calls := 0
	sim.BeforeStep(func(t float64) {
		calls++
		d.rate = t
	})

	cfg := Config{Dt: 0.1, Duration: 1.0, OutputInterval: 1.0}
	if _, err := sim.Run(context.Background(), State{1.0}, cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if calls != 10 {
		t.Errorf("expected 10 hook calls, got %d", calls)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	sim := New(&decay{rate: 1}, eulerStep{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Run(ctx, State{1.0}, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOutputGrid(t *testing.T) {
	grid := OutputGrid(1.0, 0.3)
	want := []float64{0, 0.3, 0.6, 0.9, 1.0}
	if len(grid) != len(want) {
		t.Fatalf("grid = %v, want %v", grid, want)
	}
	for i := range want {
		if math.Abs(grid[i]-want[i]) > 1e-12 {
			t.Errorf("grid[%d] = %v, want %v", i, grid[i], want[i])
		}
	}
}
