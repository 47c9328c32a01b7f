package mcp

import "github.com/nvandessel/seird/internal/models"

// InitInput defines the input for seird_init.
type InitInput struct {
	Params    map[string]float64 `json:"params,omitempty" jsonschema:"Scenario parameters (S2E, S2E_TAU, E2I, E2R, I2R, I2D, R2S); missing keys keep their configured value"`
	Topology  string             `json:"topology,omitempty" jsonschema:"Network topology: small-world (default) or modular"`
	Seed      uint64             `json:"seed,omitempty" jsonschema:"Random seed; 0 picks a fresh one"`
	GraphPath string             `json:"graph_path,omitempty" jsonschema:"Path to a graph exchange JSON file to load instead of generating one"`
}

// StartInput defines the input for seird_start.
type StartInput struct {
	Params  map[string]float64 `json:"params,omitempty" jsonschema:"Scenario parameters that replace the current ones from the next day on"`
	SpeedMs *int               `json:"speed_ms,omitempty" jsonschema:"Milliseconds between automatic days (floored at 50)"`
}

// StateInput defines the input for seird_state.
type StateInput struct {
	IncludeGraph bool `json:"include_graph,omitempty" jsonschema:"Attach the full graph exchange document"`
}

// GenerateInput defines the input for seird_generate.
type GenerateInput struct {
	Topology   string `json:"topology,omitempty" jsonschema:"Network topology: small-world (default) or modular"`
	Seed       uint64 `json:"seed,omitempty" jsonschema:"Random seed; 0 picks a fresh one"`
	OutputPath string `json:"output_path,omitempty" jsonschema:"Write the exchange document to this file"`
}

// EmptyInput is the input of tools that take no arguments.
type EmptyInput struct{}

// StateOutput is the session state returned by most tools.
type StateOutput struct {
	Ready        bool           `json:"ready" jsonschema:"Whether a graph is loaded"`
	RunID        string         `json:"run_id,omitempty" jsonschema:"Identifier of the current run"`
	CurrentDay   int            `json:"current_day" jsonschema:"Completed simulated days"`
	Running      bool           `json:"running" jsonschema:"Whether the automatic loop is active"`
	IsFinished   bool           `json:"is_finished" jsonschema:"Whether the outbreak has ended"`
	Population   int            `json:"population" jsonschema:"Total individuals, dead included"`
	StatusCounts map[string]int `json:"status_counts" jsonschema:"Individuals per status code S, E, I, R, D"`
	Params       *models.Params `json:"params,omitempty" jsonschema:"Scenario parameters in effect"`
	SpeedMs      int            `json:"speed_ms" jsonschema:"Delay between automatic days"`
	LastError    string         `json:"last_error,omitempty" jsonschema:"Error that stopped the last run"`
	Graph        string         `json:"graph,omitempty" jsonschema:"Graph exchange document as JSON, when requested"`
}

// StepOutput defines the output for seird_step.
type StepOutput struct {
	State           StateOutput `json:"state"`
	Transitions     int         `json:"transitions" jsonschema:"Individuals that changed status this day"`
	AmbientPressure float64     `json:"ambient_pressure" jsonschema:"Background infection probability used this day"`
}

// HistoryDay is one day of tallies.
type HistoryDay struct {
	Day int `json:"day"`
	S   int `json:"S"`
	E   int `json:"E"`
	I   int `json:"I"`
	R   int `json:"R"`
	D   int `json:"D"`
}

// HistoryOutput defines the output for seird_history.
type HistoryOutput struct {
	RunID string       `json:"run_id"`
	Days  []HistoryDay `json:"days"`
	Count int          `json:"count"`
}

// GenerateOutput defines the output for seird_generate.
type GenerateOutput struct {
	Seed         uint64         `json:"seed" jsonschema:"Seed the graph was built from"`
	Population   int            `json:"population"`
	Edges        int            `json:"edges"`
	StatusCounts map[string]int `json:"status_counts"`
	OutputPath   string         `json:"output_path,omitempty"`
	Message      string         `json:"message"`
}
