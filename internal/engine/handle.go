package engine

type ParameterProperty struct {
	Path  string       `yaml:"path"`
	Value float64      `yaml:"value"`
	Table []TablePoint `yaml:"table,omitempty"`
}

// IsTable reports whether the parameter follows a time-value curve.
func (p ParameterProperty) IsTable() bool { return len(p.Table) > 0 }

type SpeciesProperty struct {
	Path  string  `yaml:"path"`
	Value float64 `yaml:"value"`
}

// Values is one output trajectory as reported by an engine. A quantity that
// stayed constant over the run is reported with IsConstant set and a single
// sample, or no sample when the constant is indeterminate.
type Values struct {
	Path       string
	Samples    []float64
	IsConstant bool
}

// Handle is a single numerical engine instance. It is not safe for
// concurrent use.
type Handle interface {
	// ParameterProperties returns the full parameter catalogue with the
	// exported default values.
	ParameterProperties() []ParameterProperty
	SpeciesProperties() []SpeciesProperty

	SetVariableParameters(paths []string) error
	SetVariableSpecies(paths []string) error
	Finalize() error

	SetParameterValues(values []ParameterProperty) error
	SetSpeciesValues(values []SpeciesProperty) error

	// Run blocks until the simulation completes. A returned error concerns
	// this run only; the handle stays usable.
	Run() error

	Times() []float64
	Values() []Values
	SolverWarnings() []string
}

type Factory interface {
	CreateEngine(desc Description) (Handle, error)
}

// ODEFactory creates [Simulation] handles.
type ODEFactory struct{}

func (ODEFactory) CreateEngine(desc Description) (Handle, error) {
	return NewSimulation(desc)
}
