package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/popsim/internal/dynamo"
	"github.com/san-kum/popsim/internal/integrators"
	"github.com/san-kum/popsim/internal/physics"
)

// Simulation is an ODE-backed [Handle] built from a [Description].
type Simulation struct {
	name       string
	model      physics.Model
	integrator dynamo.Integrator
	cfg        dynamo.Config

	catalogue    []ParameterProperty
	species      []SpeciesProperty
	paramIndex   map[string]int
	speciesIndex map[string]int
	outputs      []int

	variableParams  map[string]bool
	variableSpecies map[string]bool
	finalized       bool

	paramValues   []ParameterProperty
	speciesValues []float64

	times    []float64
	values   []Values
	warnings []string
}

func NewSimulation(desc Description) (*Simulation, error) {
	exported, err := desc.decode()
	if err != nil {
		return nil, err
	}

	model, err := physics.New(exported.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	integ, err := integrators.New(exported.Integrator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	if len(exported.Species) != model.StateDim() {
		return nil, fmt.Errorf("%w: %d species for a %d-dimensional model", ErrInvalidDescription, len(exported.Species), model.StateDim())
	}

	s := &Simulation{
		name:       exported.Name,
		model:      model,
		integrator: integ,
		cfg: dynamo.Config{
			Dt:             exported.Dt,
			Duration:       exported.Duration,
			OutputInterval: exported.OutputInterval,
			Tolerance:      exported.Tolerance,
			MinDt:          exported.MinDt,
			MaxDt:          exported.MaxDt,
			ValidateState:  true,
		},
		catalogue:       exported.Parameters,
		species:         exported.Species,
		paramIndex:      make(map[string]int, len(exported.Parameters)),
		speciesIndex:    make(map[string]int, len(exported.Species)),
		variableParams:  make(map[string]bool),
		variableSpecies: make(map[string]bool),
	}

	for i, p := range s.catalogue {
		s.paramIndex[p.Path] = i
	}
	for i, sp := range s.species {
		s.speciesIndex[sp.Path] = i
	}
	for _, path := range exported.Outputs {
		idx, ok := s.speciesIndex[path]
		if !ok {
			return nil, fmt.Errorf("%w: output %s", ErrUnknownPath, path)
		}
		s.outputs = append(s.outputs, idx)
	}

	s.paramValues = make([]ParameterProperty, len(s.catalogue))
	copy(s.paramValues, s.catalogue)
	s.speciesValues = make([]float64, len(s.species))
	for i, sp := range s.species {
		s.speciesValues[i] = sp.Value
	}

	return s, nil
}

func (s *Simulation) Name() string { return s.name }

func (s *Simulation) ParameterProperties() []ParameterProperty {
	out := make([]ParameterProperty, len(s.catalogue))
	copy(out, s.catalogue)
	return out
}

func (s *Simulation) SpeciesProperties() []SpeciesProperty {
	out := make([]SpeciesProperty, len(s.species))
	copy(out, s.species)
	return out
}

func (s *Simulation) SetVariableParameters(paths []string) error {
	if s.finalized {
		return ErrFinalized
	}
	for _, p := range paths {
		if _, ok := s.paramIndex[p]; !ok {
			return fmt.Errorf("%w: parameter %s", ErrUnknownPath, p)
		}
	}
	clear(s.variableParams)
	for _, p := range paths {
		s.variableParams[p] = true
	}
	return nil
}

func (s *Simulation) SetVariableSpecies(paths []string) error {
	if s.finalized {
		return ErrFinalized
	}
	for _, p := range paths {
		if _, ok := s.speciesIndex[p]; !ok {
			return fmt.Errorf("%w: species %s", ErrUnknownPath, p)
		}
	}
	clear(s.variableSpecies)
	for _, p := range paths {
		s.variableSpecies[p] = true
	}
	return nil
}

func (s *Simulation) Finalize() error {
	if s.finalized {
		return ErrFinalized
	}
	s.finalized = true
	return nil
}

func (s *Simulation) SetParameterValues(values []ParameterProperty) error {
	if !s.finalized {
		return ErrNotFinalized
	}
	for _, v := range values {
		if !s.variableParams[v.Path] {
			return fmt.Errorf("%w: parameter %s", ErrNotVariable, v.Path)
		}
		if v.IsTable() {
			if err := validateTable(v.Table); err != nil {
				return fmt.Errorf("parameter %s: %w", v.Path, err)
			}
		}
	}
	for _, v := range values {
		s.paramValues[s.paramIndex[v.Path]] = v
	}
	return nil
}

func (s *Simulation) SetSpeciesValues(values []SpeciesProperty) error {
	if !s.finalized {
		return ErrNotFinalized
	}
	for _, v := range values {
		if !s.variableSpecies[v.Path] {
			return fmt.Errorf("%w: species %s", ErrNotVariable, v.Path)
		}
	}
	for _, v := range values {
		s.speciesValues[s.speciesIndex[v.Path]] = v.Value
	}
	return nil
}

type tableParam struct {
	name   string
	points []TablePoint
	warned bool
}

func (s *Simulation) Run() error {
	if !s.finalized {
		return ErrNotFinalized
	}
	s.times, s.values, s.warnings = nil, nil, nil

	var tables []*tableParam
	for _, p := range s.paramValues {
		name := lastSegment(p.Path)
		value := p.Value
		if p.IsTable() {
			tables = append(tables, &tableParam{name: name, points: p.Table})
			value = Interpolate(p.Table, 0)
		}
		if err := s.model.SetParam(name, value); err != nil {
			return err
		}
	}

	var tableWarnings []string
	sim := dynamo.New(s.model, s.integrator)
	if len(tables) > 0 {
		sim.BeforeStep(func(t float64) {
			for _, tp := range tables {
				last := tp.points[len(tp.points)-1].Time
				if t > last && !tp.warned {
					tableWarnings = append(tableWarnings,
						fmt.Sprintf("t=%.6g: table parameter %s evaluated past its last point (t=%.6g)", t, tp.name, last))
					tp.warned = true
				}
				// Names were validated against the model on the first SetParam.
				_ = s.model.SetParam(tp.name, Interpolate(tp.points, t))
			}
		})
	}

	x0 := make(dynamo.State, len(s.speciesValues))
	copy(x0, s.speciesValues)

	result, err := sim.Run(context.Background(), x0, s.cfg)
	if result != nil {
		s.warnings = append(s.warnings, result.Warnings...)
	}
	s.warnings = append(s.warnings, tableWarnings...)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}

	s.times = result.Times
	s.values = make([]Values, 0, len(s.outputs))
	for _, idx := range s.outputs {
		samples := make([]float64, len(result.States))
		for k, x := range result.States {
			samples[k] = x[idx]
		}
		samples, constant := compressConstant(samples)
		s.values = append(s.values, Values{
			Path:       JoinPath(s.name, s.species[idx].Path),
			Samples:    samples,
			IsConstant: constant,
		})
	}

	return nil
}

func (s *Simulation) Times() []float64         { return s.times }
func (s *Simulation) Values() []Values         { return s.values }
func (s *Simulation) SolverWarnings() []string { return append([]string(nil), s.warnings...) }

// compressConstant collapses a trajectory that never changes to one sample,
// or to none when that constant is NaN.
func compressConstant(samples []float64) ([]float64, bool) {
	if len(samples) == 0 {
		return samples, false
	}
	first := samples[0]
	for _, v := range samples[1:] {
		if v != first && !(math.IsNaN(v) && math.IsNaN(first)) {
			return samples, false
		}
	}
	if math.IsNaN(first) {
		return nil, true
	}
	return []float64{first}, true
}
