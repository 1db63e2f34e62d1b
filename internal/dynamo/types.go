package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is an autonomous or time-dependent ODE dX/dt = f(X, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Named systems expose a stable name per state component, in state order.
type Named interface {
	StateNames() []string
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

// AdaptiveIntegrator reports whether a trial step met the tolerance and
// proposes the next step size.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, t, dt, tol float64) (next State, dtNext float64, accepted bool)
}

type Config struct {
	Dt             float64
	Duration       float64
	OutputInterval float64
	Tolerance      float64
	MaxDt          float64
	MinDt          float64
	ValidateState  bool
}

func DefaultConfig() Config {
	return Config{
		Dt:             0.01,
		Duration:       10.0,
		OutputInterval: 0.1,
		Tolerance:      1e-6,
		MaxDt:          0.1,
		MinDt:          1e-8,
		ValidateState:  true,
	}
}

// Result holds the state sampled on the output grid.
type Result struct {
	Times      []float64
	States     []State
	StepsTaken int
	Warnings   []string
}
