package physics

import (
	"fmt"

	"github.com/san-kum/popsim/internal/dynamo"
)

// OneCompartmentPK models an oral dose absorbed first-order from the gut
// into a single well-stirred plasma compartment with linear clearance.
// State: [gut amount, plasma amount, eliminated amount].
//
//	dGut/dt    = -Ka * Gut
//	dPlasma/dt = F * Ka * Gut - CL/V * Plasma
//	dElim/dt   = CL/V * Plasma
type OneCompartmentPK struct {
	Ka              float64 // absorption rate constant [1/h]
	Clearance       float64 // [L/h]
	Volume          float64 // volume of distribution [L]
	Bioavailability float64 // fraction of the absorbed dose reaching plasma
}

func NewOneCompartmentPK() *OneCompartmentPK {
	return &OneCompartmentPK{
		Ka:              1.0,
		Clearance:       5.0,
		Volume:          50.0,
		Bioavailability: 1.0,
	}
}

func (p *OneCompartmentPK) Container() string    { return "Organism" }
func (p *OneCompartmentPK) StateDim() int        { return 3 }
func (p *OneCompartmentPK) StateNames() []string { return []string{"Gut", "Plasma", "Eliminated"} }

func (p *OneCompartmentPK) DefaultState() dynamo.State {
	return dynamo.State{100.0, 0.0, 0.0}
}

func (p *OneCompartmentPK) Derive(x dynamo.State, _ float64) dynamo.State {
	gut, plasma := x[0], x[1]
	absorbed := p.Ka * gut
	elimination := p.Clearance / p.Volume * plasma
	return dynamo.State{-absorbed, p.Bioavailability*absorbed - elimination, elimination}
}

func (p *OneCompartmentPK) GetParams() map[string]float64 {
	return map[string]float64{
		"Ka":              p.Ka,
		"Clearance":       p.Clearance,
		"Volume":          p.Volume,
		"Bioavailability": p.Bioavailability,
	}
}

func (p *OneCompartmentPK) SetParam(name string, value float64) error {
	switch name {
	case "Ka":
		p.Ka = value
	case "Clearance":
		p.Clearance = value
	case "Volume":
		p.Volume = value
	case "Bioavailability":
		p.Bioavailability = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
