package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// Params are the scenario transition parameters for one run. They are
// immutable once a run has started.
type Params struct {
	// S2E is the per-unit-weight transmission probability from one
	// infected neighbour.
	S2E float64 `json:"S2E" yaml:"S2E"`

	// S2ETau scales the ambient infection pressure driven by the
	// population-wide infection ratio. Not a probability; must be >= 0.
	S2ETau float64 `json:"S2E_TAU" yaml:"S2E_TAU"`

	E2I float64 `json:"E2I" yaml:"E2I"`
	E2R float64 `json:"E2R" yaml:"E2R"`
	I2R float64 `json:"I2R" yaml:"I2R"`
	I2D float64 `json:"I2D" yaml:"I2D"`
	R2S float64 `json:"R2S" yaml:"R2S"`
}

// DefaultParams returns the default scenario used when a client omits
// parameters.
func DefaultParams() Params {
	return Params{
		S2E:    0.05,
		S2ETau: 0.5,
		E2I:    0.1,
		E2R:    0.01,
		I2R:    0.1,
		I2D:    0.01,
		R2S:    0.01,
	}
}

// Validate checks that every probability lies in [0,1] and that S2E_TAU is
// a finite non-negative number.
func (p Params) Validate() error {
	probs := []struct {
		name  string
		value float64
	}{
		{"S2E", p.S2E},
		{"E2I", p.E2I},
		{"E2R", p.E2R},
		{"I2R", p.I2R},
		{"I2D", p.I2D},
		{"R2S", p.R2S},
	}
	for _, pr := range probs {
		if math.IsNaN(pr.value) || pr.value < 0 || pr.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", pr.name, pr.value)
		}
	}
	if math.IsNaN(p.S2ETau) || math.IsInf(p.S2ETau, 0) || p.S2ETau < 0 {
		return fmt.Errorf("S2E_TAU must be a non-negative number, got %v", p.S2ETau)
	}
	return nil
}

// ParseParams decodes a JSON parameter object on top of base. Keys absent
// from data keep their value from base, so callers pass DefaultParams()
// to get documented defaults for missing keys.
func ParseParams(data []byte, base Params) (Params, error) {
	p := base
	if len(data) == 0 || string(data) == "null" {
		return p, p.Validate()
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("parsing params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
