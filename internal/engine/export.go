package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/san-kum/popsim/internal/physics"
	"gopkg.in/yaml.v3"
)

type ExportMode int

const (
	// ExportOptimized reports only the requested outputs.
	ExportOptimized ExportMode = iota
	// ExportFull reports every species.
	ExportFull
)

func (m ExportMode) String() string {
	switch m {
	case ExportOptimized:
		return "optimized"
	case ExportFull:
		return "full"
	default:
		return fmt.Sprintf("ExportMode(%d)", int(m))
	}
}

type Exporter interface {
	Export(ctx context.Context, def *Definition, mode ExportMode) (Description, error)
}

// ModelExporter resolves a Definition against the physics model registry and
// writes the complete parameter and species catalogue.
type ModelExporter struct{}

func NewExporter() *ModelExporter { return &ModelExporter{} }

func (e *ModelExporter) Export(ctx context.Context, def *Definition, mode ExportMode) (Description, error) {
	if err := ctx.Err(); err != nil {
		return Description{}, err
	}
	if def == nil {
		return Description{}, fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	if err := def.Validate(); err != nil {
		return Description{}, err
	}

	m, err := physics.New(def.Model)
	if err != nil {
		return Description{}, err
	}
	for name, value := range def.Parameters {
		if err := m.SetParam(name, value); err != nil {
			return Description{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
	}

	container := m.Container()
	out := exportedModel{
		Name:           def.Name,
		Model:          def.Model,
		Integrator:     def.Integrator,
		Dt:             def.Dt,
		Duration:       def.Duration,
		OutputInterval: def.OutputInterval,
		Tolerance:      def.Tolerance,
		MinDt:          def.MinDt,
		MaxDt:          def.MaxDt,
	}

	params := m.GetParams()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Parameters = append(out.Parameters, ParameterProperty{
			Path:  JoinPath(container, name),
			Value: params[name],
			Table: def.TableParameters[name],
		})
	}

	x0 := m.DefaultState()
	for i, name := range m.StateNames() {
		value := x0[i]
		if v, ok := def.InitialValues[name]; ok {
			value = v
		}
		out.Species = append(out.Species, SpeciesProperty{Path: JoinPath(container, name), Value: value})
	}

	outputs := def.Outputs
	if mode == ExportFull || len(outputs) == 0 {
		outputs = m.StateNames()
	}
	for _, name := range outputs {
		out.Outputs = append(out.Outputs, JoinPath(container, name))
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return Description{}, fmt.Errorf("marshal description: %w", err)
	}
	return Description{data: data}, nil
}
