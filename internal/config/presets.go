package config

import (
	"sort"

	"github.com/san-kum/popsim/internal/engine"
)

var Presets = map[string]map[string]engine.Definition{
	"pk": {
		"oral": {
			Name: "Oral", Model: "pk", Integrator: "rk4",
			Dt: 0.01, Duration: 24, OutputInterval: 0.5,
			Outputs: []string{"Plasma"},
		},
		"oral-adaptive": {
			Name: "OralAdaptive", Model: "pk", Integrator: "rk45",
			Dt: 0.1, Duration: 48, OutputInterval: 1, Tolerance: 1e-6, MinDt: 1e-4, MaxDt: 1,
			Outputs: []string{"Plasma", "Eliminated"},
		},
		"growing-clearance": {
			Name: "GrowingClearance", Model: "pk", Integrator: "rk4",
			Dt: 0.01, Duration: 24, OutputInterval: 0.5,
			TableParameters: map[string][]engine.TablePoint{
				"Clearance": {{Time: 0, Value: 3}, {Time: 24, Value: 8}},
			},
			Outputs: []string{"Plasma"},
		},
	},
	"pendulum": {
		"small": {
			Name: "SmallSwing", Model: "pendulum", Integrator: "rk4",
			Dt: 0.01, Duration: 20, OutputInterval: 0.1,
			InitialValues: map[string]float64{"Theta": 0.2, "Omega": 0},
		},
		"large": {
			Name: "LargeSwing", Model: "pendulum", Integrator: "rk4",
			Dt: 0.01, Duration: 20, OutputInterval: 0.1,
			InitialValues: map[string]float64{"Theta": 2.5, "Omega": 0},
		},
	},
	"spring_mass": {
		"bounce": {
			Name: "Bounce", Model: "spring_mass", Integrator: "rk4",
			Dt: 0.01, Duration: 20, OutputInterval: 0.1,
			InitialValues: map[string]float64{"Position": 2, "Velocity": 0},
		},
	},
	"vanderpol": {
		"relaxation": {
			Name: "Relaxation", Model: "vanderpol", Integrator: "rk45",
			Dt: 0.01, Duration: 30, OutputInterval: 0.1, Tolerance: 1e-6,
			Parameters: map[string]float64{"Mu": 5},
		},
	},
	"lorenz": {
		"classic": {
			Name: "Classic", Model: "lorenz", Integrator: "rk4",
			Dt: 0.005, Duration: 20, OutputInterval: 0.05,
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *engine.Definition {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	def, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return &def
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
