package physics

import (
	"fmt"
	"sort"

	"github.com/san-kum/popsim/internal/dynamo"
)

// Model is a catalogued system: named state, named parameters and a
// container name used as the first path segment of both.
type Model interface {
	dynamo.System
	dynamo.Named
	dynamo.Configurable
	Container() string
	DefaultState() dynamo.State
}

var models = map[string]func() Model{
	"pendulum":    func() Model { return NewPendulum() },
	"spring_mass": func() Model { return NewSpringMass() },
	"vanderpol":   func() Model { return NewVanDerPol() },
	"lorenz":      func() Model { return NewLorenz() },
	"pk":          func() Model { return NewOneCompartmentPK() },
}

// New returns a fresh model with default parameters.
func New(name string) (Model, error) {
	fn, ok := models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
