package dynamo

import (
	"context"
	"fmt"
	"math"
)

// gridEps absorbs floating point drift when landing on output times.
const gridEps = 1e-9

type Simulator struct {
	dyn        System
	integrator Integrator
	beforeStep func(t float64)
}

func New(dyn System, integrator Integrator) *Simulator {
	return &Simulator{dyn: dyn, integrator: integrator}
}

// BeforeStep registers a hook invoked with the current time before every
// integration step. Time-dependent parameters are updated from it.
func (s *Simulator) BeforeStep(fn func(t float64)) { s.beforeStep = fn }

// OutputGrid returns the sample times 0, interval, 2*interval, ... up to and
// including duration.
func OutputGrid(duration, interval float64) []float64 {
	n := int(math.Floor(duration/interval + gridEps))
	grid := make([]float64, 0, n+2)
	for k := 0; k <= n; k++ {
		grid = append(grid, float64(k)*interval)
	}
	if duration-grid[len(grid)-1] > gridEps*math.Max(1, duration) {
		grid = append(grid, duration)
	}
	return grid
}

// Run integrates from x0 and samples the state on the output grid. The
// integration step is clipped so every output time is hit exactly. When the
// integrator is adaptive and a tolerance is set, the step size is controlled
// by the integrator's error estimate.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}

	grid := OutputGrid(cfg.Duration, cfg.OutputInterval)
	result := &Result{
		Times:  make([]float64, 0, len(grid)),
		States: make([]State, 0, len(grid)),
	}

	adaptive, isAdaptive := s.integrator.(AdaptiveIntegrator)
	isAdaptive = isAdaptive && cfg.Tolerance > 0
	minDt := cfg.MinDt
	if minDt <= 0 {
		minDt = DefaultConfig().MinDt
	}
	maxDt := cfg.MaxDt
	if maxDt <= 0 {
		maxDt = cfg.Duration
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt
	clamped := false

	result.Times = append(result.Times, t)
	result.States = append(result.States, x.Clone())

	for _, target := range grid[1:] {
		for target-t > gridEps {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
			}

			h := math.Min(dt, target-t)
			if s.beforeStep != nil {
				s.beforeStep(t)
			}

			if isAdaptive {
				next, dtNext, accepted := adaptive.StepAdaptive(s.dyn, x, t, h, cfg.Tolerance)
				if math.IsNaN(dtNext) || dtNext <= 0 {
					dtNext = minDt
				}
				if !accepted {
					if h > minDt {
						dt = math.Max(math.Min(dtNext, h/2), minDt)
						continue
					}
					if !clamped {
						result.Warnings = append(result.Warnings, fmt.Sprintf("t=%.6g: %v", t, ErrStepTooSmall))
						clamped = true
					}
				}
				x = next
				dt = math.Min(math.Max(dtNext, minDt), maxDt)
			} else {
				x = s.integrator.Step(s.dyn, x, t, h)
			}
			t += h
			result.StepsTaken++

			if cfg.ValidateState && !x.IsValid() {
				return result, &SimulationError{Step: result.StepsTaken, Time: t, Wrapped: ErrInvalidState}
			}
		}

		t = target
		result.Times = append(result.Times, t)
		result.States = append(result.States, x.Clone())
	}

	return result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	if cfg.OutputInterval <= 0 {
		return fmt.Errorf("%w: output interval must be positive, got %f", ErrInvalidConfig, cfg.OutputInterval)
	}
	return nil
}
