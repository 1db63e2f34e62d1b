package engine

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Description is an exported, engine-ready model. It is immutable and safe
// to share between goroutines.
type Description struct {
	data []byte
}

func (d Description) Bytes() []byte  { return bytes.Clone(d.data) }
func (d Description) String() string { return string(d.data) }
func (d Description) IsZero() bool   { return len(d.data) == 0 }

// DescriptionFrom wraps previously exported bytes.
func DescriptionFrom(data []byte) Description {
	return Description{data: bytes.Clone(data)}
}

type exportedModel struct {
	Name           string              `yaml:"name"`
	Model          string              `yaml:"model"`
	Integrator     string              `yaml:"integrator"`
	Dt             float64             `yaml:"dt"`
	Duration       float64             `yaml:"duration"`
	OutputInterval float64             `yaml:"output_interval"`
	Tolerance      float64             `yaml:"tolerance,omitempty"`
	MinDt          float64             `yaml:"min_dt,omitempty"`
	MaxDt          float64             `yaml:"max_dt,omitempty"`
	Parameters     []ParameterProperty `yaml:"parameters"`
	Species        []SpeciesProperty   `yaml:"species"`
	Outputs        []string            `yaml:"outputs"`
}

func (d Description) decode() (*exportedModel, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: empty", ErrInvalidDescription)
	}
	var m exportedModel
	if err := yaml.Unmarshal(d.data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	return &m, nil
}
