package engine

import (
	"fmt"
	"strings"

	"github.com/san-kum/popsim/internal/integrators"
	"github.com/san-kum/popsim/internal/physics"
)

type TablePoint struct {
	Time  float64 `yaml:"time"`
	Value float64 `yaml:"value"`
}

// Definition describes one simulation: a model, how to integrate it and
// which parameter and initial values differ from the model defaults.
// Parameter, table parameter, initial value and output keys are the bare
// names the model uses (e.g. "Clearance"), not paths.
type Definition struct {
	Name            string                  `yaml:"name"`
	Model           string                  `yaml:"model"`
	Integrator      string                  `yaml:"integrator"`
	Dt              float64                 `yaml:"dt"`
	Duration        float64                 `yaml:"duration"`
	OutputInterval  float64                 `yaml:"output_interval"`
	Tolerance       float64                 `yaml:"tolerance,omitempty"`
	MinDt           float64                 `yaml:"min_dt,omitempty"`
	MaxDt           float64                 `yaml:"max_dt,omitempty"`
	Parameters      map[string]float64      `yaml:"parameters,omitempty"`
	TableParameters map[string][]TablePoint `yaml:"table_parameters,omitempty"`
	InitialValues   map[string]float64      `yaml:"initial_values,omitempty"`
	Outputs         []string                `yaml:"outputs,omitempty"`
}

func (d *Definition) Validate() error {
	if d.Name == "" || strings.Contains(d.Name, PathSeparator) {
		return fmt.Errorf("%w: name %q must be non-empty and free of %q", ErrInvalidDefinition, d.Name, PathSeparator)
	}
	if d.Dt <= 0 || d.Duration <= 0 || d.OutputInterval <= 0 {
		return fmt.Errorf("%w: dt, duration and output_interval must be positive", ErrInvalidDefinition)
	}
	if _, err := integrators.New(d.Integrator); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	m, err := physics.New(d.Model)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	params := m.GetParams()
	for name := range d.Parameters {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("%w: model %s has no parameter %q", ErrInvalidDefinition, d.Model, name)
		}
	}
	for name, points := range d.TableParameters {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("%w: model %s has no parameter %q", ErrInvalidDefinition, d.Model, name)
		}
		if err := validateTable(points); err != nil {
			return fmt.Errorf("%w: table parameter %q: %v", ErrInvalidDefinition, name, err)
		}
	}

	species := make(map[string]bool)
	for _, name := range m.StateNames() {
		species[name] = true
	}
	for name := range d.InitialValues {
		if !species[name] {
			return fmt.Errorf("%w: model %s has no species %q", ErrInvalidDefinition, d.Model, name)
		}
	}
	for _, name := range d.Outputs {
		if !species[name] {
			return fmt.Errorf("%w: model %s has no output %q", ErrInvalidDefinition, d.Model, name)
		}
	}

	return nil
}
