package integrators

import (
	"math"

	"github.com/san-kum/popsim/internal/dynamo"
)

// dormandPrince is the Butcher tableau of the Dormand-Prince 5(4) pair. The
// seventh stage is evaluated at the new state and only feeds the error
// estimate.
var dormandPrince = struct {
	c [6]float64
	a [6][5]float64
	b [6]float64
	e [7]float64
}{
	c: [6]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1},
	a: [6][5]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
	},
	b: [6]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	e: [7]float64{
		35.0/384 - 5179.0/57600,
		0,
		500.0/1113 - 7571.0/16695,
		125.0/192 - 393.0/640,
		-2187.0/6784 + 92097.0/339200,
		11.0/84 - 187.0/2100,
		-1.0 / 40,
	},
}

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	k     [7]dynamo.State
	stage dynamo.State
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.stage) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

func (r *RK45) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	newX, _, _ := r.StepAdaptive(dyn, x, t, dt, 1e-6)
	return newX
}

// StepAdaptive takes one Dormand-Prince step of size dt. The step is accepted
// when the embedded error estimate is within tol; dtNext is the suggested
// size for the following (or retried) step.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, t, dt, tol float64) (dynamo.State, float64, bool) {
	n := len(x)
	r.ensureScratch(n)
	tab := &dormandPrince

	copy(r.k[0], dyn.Derive(x, t))
	for s := 1; s < len(tab.c); s++ {
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < s; j++ {
				sum += tab.a[s][j] * r.k[j][i]
			}
			r.stage[i] = x[i] + dt*sum
		}
		copy(r.k[s], dyn.Derive(r.stage, t+tab.c[s]*dt))
	}

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j, w := range tab.b {
			sum += w * r.k[j][i]
		}
		xNew[i] = x[i] + dt*sum
	}
	copy(r.k[6], dyn.Derive(xNew, t+dt))

	errMax := 0.0
	for i := 0; i < n; i++ {
		est := 0.0
		for j, w := range tab.e {
			est += w * r.k[j][i]
		}
		scale := math.Abs(x[i]) + math.Abs(dt*r.k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(dt*est)/scale)
	}

	errRatio := errMax / tol

	var dtNew float64
	switch {
	case errRatio > 1:
		dtNew = dt * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	case errRatio > 0:
		dtNew = dt * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		dtNew = dt * r.maxScale
	}

	return xNew, dtNew, errRatio <= 1
}
