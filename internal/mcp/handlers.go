package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
	"github.com/nvandessel/seird/internal/network"
	"github.com/nvandessel/seird/internal/ratelimit"
	"github.com/nvandessel/seird/internal/session"
)

// registerTools registers every seird tool with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "seird_init",
		Description: "Load a new simulation: generate a contact network (or load one from a file) and reset the day counter",
	}, s.handleInit)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "seird_start",
		Description: "Start advancing days automatically until the outbreak ends or seird_pause is called",
	}, s.handleStart)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "seird_step",
		Description: "Advance the simulation by exactly one day (refused while running)",
	}, s.handleStep)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "seird_pause",
		Description: "Stop the automatic loop after the day in progress",
	}, s.handlePause)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "seird_rewind",
		Description: "Restore every individual to its initial status and return to day 0, keeping the network",
	}, s.handleRewind)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "seird_reset",
		Description: "Stop any run and discard the loaded simulation",
	}, s.handleReset)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "seird_state",
		Description: "Report the current day, status counts and parameters",
	}, s.handleState)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "seird_history",
		Description: "List the S/E/I/R/D counts of every completed day of the current run",
	}, s.handleHistory)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "seird_generate",
		Description: "Generate a contact network without loading it, optionally writing it to a file",
	}, s.handleGenerate)
}

// registerResources registers the live state resource.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         "seird://simulation/state",
		Name:        "seird-simulation-state",
		Description: "Current simulation state as JSON.",
		MIMEType:    "application/json",
	}, s.handleStateResource)
}

func (s *Server) handleStateResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.ctrl.State(false), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      "seird://simulation/state",
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleInit(ctx context.Context, req *sdk.CallToolRequest, args InitInput) (_ *sdk.CallToolResult, _ StateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("seird_init", start, retErr, sanitizeToolParams(map[string]any{
			"params": args.Params, "topology": args.Topology, "seed": args.Seed, "graph_path": args.GraphPath,
		}))
	}()

	if err := s.limits.Check(ratelimit.CmdInit, ""); err != nil {
		return nil, StateOutput{}, err
	}

	params, err := overlayParams(args.Params, s.ctrl.Config().Params)
	if err != nil {
		return nil, StateOutput{}, err
	}
	in := session.InitRequest{
		Params:   &params,
		Topology: network.Topology(args.Topology),
		Seed:     args.Seed,
	}
	if args.GraphPath != "" {
		if in.Graph, err = readGraphFile(args.GraphPath); err != nil {
			return nil, StateOutput{}, err
		}
	}

	st, err := s.ctrl.Init(ctx, in)
	if err != nil {
		return nil, StateOutput{}, err
	}
	return nil, toStateOutput(st), nil
}

func (s *Server) handleStart(ctx context.Context, req *sdk.CallToolRequest, args StartInput) (_ *sdk.CallToolResult, _ StateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("seird_start", start, retErr, sanitizeToolParams(map[string]any{
			"params": args.Params, "speed_ms": args.SpeedMs,
		}))
	}()

	if err := s.limits.Check(ratelimit.CmdStart, ""); err != nil {
		return nil, StateOutput{}, err
	}

	var in session.StartRequest
	if len(args.Params) > 0 {
		base := s.ctrl.Config().Params
		if st := s.ctrl.State(false); st.Params != nil {
			base = *st.Params
		}
		params, err := overlayParams(args.Params, base)
		if err != nil {
			return nil, StateOutput{}, err
		}
		in.Params = &params
	}
	if args.SpeedMs != nil {
		if *args.SpeedMs < 0 {
			return nil, StateOutput{}, fmt.Errorf("speed_ms must be non-negative, got %d", *args.SpeedMs)
		}
		in.SpeedMs = args.SpeedMs
	}

	st, err := s.ctrl.Start(ctx, in)
	if err != nil {
		return nil, StateOutput{}, err
	}
	return nil, toStateOutput(st), nil
}

func (s *Server) handleStep(ctx context.Context, req *sdk.CallToolRequest, args EmptyInput) (_ *sdk.CallToolResult, _ StepOutput, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("seird_step", start, retErr, nil) }()

	if err := s.limits.Check(ratelimit.CmdStep, ""); err != nil {
		return nil, StepOutput{}, err
	}
	report, err := s.ctrl.Step(ctx)
	if err != nil {
		return nil, StepOutput{}, err
	}
	return nil, StepOutput{
		State:           toStateOutput(s.ctrl.State(false)),
		Transitions:     report.Flows.Total(),
		AmbientPressure: report.AmbientPressure,
	}, nil
}

func (s *Server) handlePause(ctx context.Context, req *sdk.CallToolRequest, args EmptyInput) (_ *sdk.CallToolResult, _ StateOutput, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("seird_pause", start, retErr, nil) }()

	if err := s.ctrl.Pause(ctx); err != nil {
		return nil, StateOutput{}, err
	}
	return nil, toStateOutput(s.ctrl.State(false)), nil
}

func (s *Server) handleRewind(ctx context.Context, req *sdk.CallToolRequest, args EmptyInput) (_ *sdk.CallToolResult, _ StateOutput, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("seird_rewind", start, retErr, nil) }()

	st, err := s.ctrl.Rewind(ctx)
	if err != nil {
		return nil, StateOutput{}, err
	}
	return nil, toStateOutput(st), nil
}

func (s *Server) handleReset(ctx context.Context, req *sdk.CallToolRequest, args EmptyInput) (_ *sdk.CallToolResult, _ StateOutput, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("seird_reset", start, retErr, nil) }()

	if err := s.ctrl.Reset(ctx); err != nil {
		return nil, StateOutput{}, err
	}
	return nil, toStateOutput(s.ctrl.State(false)), nil
}

func (s *Server) handleState(ctx context.Context, req *sdk.CallToolRequest, args StateInput) (_ *sdk.CallToolResult, _ StateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("seird_state", start, retErr, sanitizeToolParams(map[string]any{"include_graph": args.IncludeGraph}))
	}()

	st := s.ctrl.State(args.IncludeGraph)
	out := toStateOutput(st)
	if st.Graph != nil {
		data, err := json.Marshal(st.Graph)
		if err != nil {
			return nil, StateOutput{}, fmt.Errorf("encoding graph: %w", err)
		}
		out.Graph = string(data)
	}
	return nil, out, nil
}

func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args EmptyInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("seird_history", start, retErr, nil) }()

	records, err := s.ctrl.History(ctx)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	days := make([]HistoryDay, len(records))
	for i, r := range records {
		days[i] = HistoryDay{Day: r.Day, S: r.S, E: r.E, I: r.I, R: r.R, D: r.D}
	}
	return nil, HistoryOutput{
		RunID: s.ctrl.State(false).RunID,
		Days:  days,
		Count: len(days),
	}, nil
}

func (s *Server) handleGenerate(ctx context.Context, req *sdk.CallToolRequest, args GenerateInput) (_ *sdk.CallToolResult, _ GenerateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("seird_generate", start, retErr, sanitizeToolParams(map[string]any{
			"topology": args.Topology, "seed": args.Seed, "output_path": args.OutputPath,
		}))
	}()

	if err := s.limits.Check(ratelimit.CmdGenerate, ""); err != nil {
		return nil, GenerateOutput{}, err
	}

	g, seed, err := s.ctrl.GenerateGraph(network.Topology(args.Topology), args.Seed)
	if err != nil {
		return nil, GenerateOutput{}, err
	}

	out := GenerateOutput{
		Seed:         seed,
		Population:   g.Len(),
		Edges:        g.EdgeCount(),
		StatusCounts: g.Counts().Map(),
	}
	if args.OutputPath != "" {
		if err := writeGraphFile(args.OutputPath, g); err != nil {
			return nil, GenerateOutput{}, err
		}
		out.OutputPath = args.OutputPath
	}
	out.Message = fmt.Sprintf("Generated %d individuals and %d contacts from seed %d", out.Population, out.Edges, seed)
	return nil, out, nil
}

func toStateOutput(st session.State) StateOutput {
	return StateOutput{
		Ready:        st.Ready,
		RunID:        st.RunID,
		CurrentDay:   st.CurrentDay,
		Running:      st.Running,
		IsFinished:   st.IsFinished,
		Population:   st.Population,
		StatusCounts: st.StatusCounts,
		Params:       st.Params,
		SpeedMs:      st.SpeedMs,
		LastError:    st.LastError,
	}
}

// overlayParams applies the given keys on top of base and validates the
// result.
func overlayParams(keys map[string]float64, base models.Params) (models.Params, error) {
	if len(keys) == 0 {
		return base, base.Validate()
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return models.Params{}, fmt.Errorf("encoding params: %w", err)
	}
	return models.ParseParams(data, base)
}

func readGraphFile(path string) (*graph.ContactGraph, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening graph file: %w", err)
	}
	defer f.Close()
	return graph.ReadJSON(f)
}

func writeGraphFile(path string, g *graph.ContactGraph) error {
	var buf bytes.Buffer
	if err := graph.WriteJSON(&buf, g); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing graph file: %w", err)
	}
	return nil
}
