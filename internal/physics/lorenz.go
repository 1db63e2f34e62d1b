package physics

import (
	"fmt"

	"github.com/san-kum/popsim/internal/dynamo"
)

type Lorenz struct{ sigma, rho, beta float64 }

func NewLorenz() *Lorenz                     { return &Lorenz{10.0, 28.0, 8.0 / 3.0} }
func (l *Lorenz) Container() string          { return "Lorenz" }
func (l *Lorenz) StateDim() int              { return 3 }
func (l *Lorenz) StateNames() []string       { return []string{"X", "Y", "Z"} }
func (l *Lorenz) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }

// Derive calculates the Lorenz attractor derivatives.
func (l *Lorenz) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{l.sigma * (s[1] - s[0]), s[0]*(l.rho-s[2]) - s[1], s[0]*s[1] - l.beta*s[2]}
}

func (l *Lorenz) GetParams() map[string]float64 {
	return map[string]float64{"Sigma": l.sigma, "Rho": l.rho, "Beta": l.beta}
}

func (l *Lorenz) SetParam(n string, v float64) error {
	switch n {
	case "Sigma":
		l.sigma = v
	case "Rho":
		l.rho = v
	case "Beta":
		l.beta = v
	default:
		return fmt.Errorf("unknown param: %s", n)
	}
	return nil
}
