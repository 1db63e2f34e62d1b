package population

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/popsim/internal/engine"
	"github.com/sirupsen/logrus"
)

// worker simulates the contiguous range of individuals assigned to one core
// on its own engine handle.
type worker struct {
	core           int
	simulationName string
	splitter       *Splitter
	results        *Results
	progress       func()
	log            logrus.FieldLogger
}

// run returns nil when every assigned individual was processed, ctx.Err()
// when canceled, and any other error when the run must stop.
func (w *worker) run(ctx context.Context, factory engine.Factory, desc engine.Description) (err error) {
	defer func() {
		if p := recover(); p != nil {
			w.log.WithField("panic", p).Error("worker panicked")
			err = fmt.Errorf("%w: core %d: %v", ErrWorkerPanic, w.core, p)
		}
	}()

	ids := w.splitter.IndividualsForCore(w.core)
	if len(ids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	h, err := w.setup(factory, desc)
	if err != nil {
		return err
	}

	w.log.WithField("individuals", len(ids)).Debug("worker started")
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.simulate(h, id); err != nil {
			return err
		}
	}
	w.log.Debug("worker done")
	return nil
}

func (w *worker) setup(factory engine.Factory, desc engine.Description) (engine.Handle, error) {
	h, err := factory.CreateEngine(desc)
	if err != nil {
		return nil, fmt.Errorf("core %d: create engine: %w", w.core, err)
	}
	if err := h.SetVariableParameters(w.splitter.ParameterPathsToVary()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := h.SetVariableSpecies(w.splitter.InitialValuePathsToVary()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := h.Finalize(); err != nil {
		return nil, fmt.Errorf("core %d: finalize engine: %w", w.core, err)
	}
	return h, nil
}

// simulate runs one individual. A solver error is recorded as that
// individual's failure; only override errors are returned.
func (w *worker) simulate(h engine.Handle, id int) error {
	if err := w.splitter.ApplyOverridesFor(id, h); err != nil {
		return err
	}

	defer func() {
		w.results.AddWarnings(id, h.SolverWarnings())
		w.progress()
	}()

	if err := h.Run(); err != nil {
		w.log.WithFields(logrus.Fields{"individual": id, "error": err}).Warn("simulation failed")
		w.results.AddFailure(id, err.Error())
		return nil
	}

	w.results.AddSuccess(collect(id, h, w.simulationName))
	return nil
}

// collect converts engine output to single precision, strips the simulation
// name from every path and expands constant quantities to the time grid.
func collect(id int, h engine.Handle, simulationName string) IndividualResult {
	times := h.Times()
	res := IndividualResult{
		IndividualID: id,
		Time:         QuantityValues{Path: TimePath, Values: toFloat32(times)},
	}

	for _, v := range h.Values() {
		samples := v.Samples
		if v.IsConstant {
			fill := math.NaN()
			if len(samples) == 1 {
				fill = samples[0]
			}
			samples = broadcast(fill, len(times))
		}
		res.Quantities = append(res.Quantities, QuantityValues{
			Path:   engine.RemoveSegment(v.Path, simulationName),
			Values: toFloat32(samples),
		})
	}
	return res
}

func broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
