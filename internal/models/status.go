// Package models defines the core data types shared across the seird
// packages: individual health status, scenario parameters and per-state
// population counts.
package models

import (
	"encoding/json"
	"fmt"
)

// Status is the SEIRD compartment of an individual.
type Status uint8

const (
	Susceptible Status = iota
	Exposed
	Infected
	Recovered
	Dead
)

// NumStatuses is the number of compartments.
const NumStatuses = 5

// AllStatuses lists every compartment in S, E, I, R, D order.
var AllStatuses = [NumStatuses]Status{Susceptible, Exposed, Infected, Recovered, Dead}

var statusCodes = [NumStatuses]string{"S", "E", "I", "R", "D"}

var statusNames = [NumStatuses]string{"Susceptible", "Exposed", "Infected", "Recovered", "Dead"}

// Code returns the single-letter wire code ("S", "E", "I", "R", "D").
func (s Status) Code() string {
	if !s.Valid() {
		return "?"
	}
	return statusCodes[s]
}

// String returns the full compartment name.
func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
	return statusNames[s]
}

// Valid reports whether s is one of the five compartments.
func (s Status) Valid() bool {
	return s < NumStatuses
}

// Living reports whether the status counts toward the living population.
func (s Status) Living() bool {
	return s != Dead
}

// ParseStatus parses a single-letter wire code.
func ParseStatus(code string) (Status, error) {
	for i, c := range statusCodes {
		if c == code {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status code %q (valid: S, E, I, R, D)", code)
}

// MarshalJSON encodes the status as its wire code.
func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid status %d", uint8(s))
	}
	return json.Marshal(s.Code())
}

// UnmarshalJSON decodes a wire code.
func (s *Status) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("status must be a string: %w", err)
	}
	parsed, err := ParseStatus(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
