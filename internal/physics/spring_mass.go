package physics

import (
	"fmt"

	"github.com/san-kum/popsim/internal/dynamo"
)

const (
	DefaultMass      = 1.0
	DefaultStiffness = 10.0
	DefaultDamping   = 0.5
)

// SpringMass is a damped harmonic oscillator. State: [position, velocity].
type SpringMass struct {
	Mass      float64
	Stiffness float64
	Damping   float64
}

func NewSpringMass() *SpringMass {
	return &SpringMass{
		Mass:      DefaultMass,
		Stiffness: DefaultStiffness,
		Damping:   DefaultDamping,
	}
}

func (s *SpringMass) Container() string          { return "Spring" }
func (s *SpringMass) StateDim() int              { return 2 }
func (s *SpringMass) StateNames() []string       { return []string{"Position", "Velocity"} }
func (s *SpringMass) DefaultState() dynamo.State { return dynamo.State{1.0, 0.0} }

func (s *SpringMass) Derive(x dynamo.State, t float64) dynamo.State {
	pos, vel := x[0], x[1]
	force := -s.Stiffness*pos - s.Damping*vel
	return dynamo.State{vel, force / s.Mass}
}

func (s *SpringMass) Energy(x dynamo.State) float64 {
	return 0.5*s.Mass*x[1]*x[1] + 0.5*s.Stiffness*x[0]*x[0]
}

func (s *SpringMass) GetParams() map[string]float64 {
	return map[string]float64{
		"Mass":      s.Mass,
		"Stiffness": s.Stiffness,
		"Damping":   s.Damping,
	}
}

func (s *SpringMass) SetParam(name string, value float64) error {
	switch name {
	case "Mass":
		s.Mass = value
	case "Stiffness":
		s.Stiffness = value
	case "Damping":
		s.Damping = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
