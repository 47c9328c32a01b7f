package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/network"
	"github.com/nvandessel/seird/internal/ratelimit"
	"github.com/nvandessel/seird/internal/session"
)

// testConfig keeps every infected individual infected and sleeps an hour
// between automatic days.
func testConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Network.Population = 60
	cfg.Network.DoctorRange = network.Range{}
	cfg.Seed = 5
	cfg.SpeedMs = int(time.Hour / time.Millisecond)
	cfg.Params.I2R = 0
	cfg.Params.I2D = 0
	return cfg
}

func newTestServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	ctrl := session.New(testConfig())
	t.Cleanup(func() { _ = ctrl.Shutdown(context.Background()) })
	if cfg == nil {
		cfg = &Config{Name: "test-server", Version: "v1.0.0"}
	}
	return NewServer(cfg, ctrl)
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t, nil)
	defer s.Close()

	if s.server == nil {
		t.Error("Server.server is nil")
	}
	if s.limits == nil {
		t.Error("default limits not applied")
	}
	if s.audit != nil {
		t.Error("audit log should be disabled without AuditDir")
	}
}

func TestHandleState_Uninitialized(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, out, err := s.handleState(ctx, nil, StateInput{})
	if err != nil {
		t.Fatalf("handleState failed: %v", err)
	}
	if result != nil {
		t.Error("Expected nil result (SDK auto-populates)")
	}
	if out.Ready {
		t.Error("Ready = true before init")
	}

	if _, _, err := s.handleStep(ctx, nil, EmptyInput{}); !errors.Is(err, session.ErrUninitialized) {
		t.Errorf("step error = %v, want ErrUninitialized", err)
	}
	if _, _, err := s.handleHistory(ctx, nil, EmptyInput{}); !errors.Is(err, session.ErrUninitialized) {
		t.Errorf("history error = %v, want ErrUninitialized", err)
	}
}

func TestHandleInitStepHistory(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	_, out, err := s.handleInit(ctx, nil, InitInput{Params: map[string]float64{"S2E": 0.3}})
	if err != nil {
		t.Fatalf("handleInit failed: %v", err)
	}
	if !out.Ready || out.Population != 60 || out.CurrentDay != 0 {
		t.Fatalf("state after init = %+v", out)
	}
	if out.Params.S2E != 0.3 || out.Params.E2I != 0.1 {
		t.Errorf("params = %+v, want S2E overlaid on defaults", *out.Params)
	}

	for day := 1; day <= 2; day++ {
		_, step, err := s.handleStep(ctx, nil, EmptyInput{})
		if err != nil {
			t.Fatalf("handleStep failed: %v", err)
		}
		if step.State.CurrentDay != day {
			t.Errorf("CurrentDay = %d, want %d", step.State.CurrentDay, day)
		}
	}

	_, hist, err := s.handleHistory(ctx, nil, EmptyInput{})
	if err != nil {
		t.Fatalf("handleHistory failed: %v", err)
	}
	if hist.Count != 2 || hist.RunID != out.RunID || hist.Days[1].Day != 2 {
		t.Errorf("history = %+v", hist)
	}
	for _, d := range hist.Days {
		if d.S+d.E+d.I+d.R+d.D != 60 {
			t.Errorf("day %d does not conserve population: %+v", d.Day, d)
		}
	}

	_, st, err := s.handleState(ctx, nil, StateInput{IncludeGraph: true})
	if err != nil {
		t.Fatalf("handleState failed: %v", err)
	}
	if st.Graph == "" {
		t.Error("include_graph did not attach the graph")
	}
}

func TestHandleInit_Invalid(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	if _, _, err := s.handleInit(ctx, nil, InitInput{Params: map[string]float64{"I2D": 3}}); err == nil {
		t.Error("expected error for out-of-range parameter")
	}
	if _, _, err := s.handleInit(ctx, nil, InitInput{Topology: "torus"}); !errors.Is(err, network.ErrInvalidTopology) {
		t.Errorf("error = %v, want ErrInvalidTopology", err)
	}
	if _, _, err := s.handleInit(ctx, nil, InitInput{GraphPath: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for missing graph file")
	}
}

func TestHandleGenerateAndLoad(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "graph.json")

	_, gen, err := s.handleGenerate(ctx, nil, GenerateInput{Topology: "modular", Seed: 3, OutputPath: path})
	if err != nil {
		t.Fatalf("handleGenerate failed: %v", err)
	}
	if gen.Seed != 3 || gen.Population != 60 || gen.OutputPath != path {
		t.Errorf("generate output = %+v", gen)
	}
	if s.ctrl.State(false).Ready {
		t.Error("generate should not load the session")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	g, err := graph.ReadJSON(f)
	f.Close()
	if err != nil {
		t.Fatalf("reading generated graph: %v", err)
	}
	if g.EdgeCount() != gen.Edges {
		t.Errorf("file has %d edges, output says %d", g.EdgeCount(), gen.Edges)
	}

	_, st, err := s.handleInit(ctx, nil, InitInput{GraphPath: path})
	if err != nil {
		t.Fatalf("handleInit from file failed: %v", err)
	}
	if st.Population != 60 {
		t.Errorf("Population = %d, want 60", st.Population)
	}
}

func TestHandleStartPauseRewind(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	if _, _, err := s.handleInit(ctx, nil, InitInput{}); err != nil {
		t.Fatal(err)
	}
	_, st, err := s.handleStart(ctx, nil, StartInput{})
	if err != nil {
		t.Fatalf("handleStart failed: %v", err)
	}
	if !st.Running {
		t.Error("Running = false after start")
	}

	if _, _, err := s.handleStart(ctx, nil, StartInput{}); !errors.Is(err, session.ErrAlreadyRunning) {
		t.Errorf("second start error = %v, want ErrAlreadyRunning", err)
	}
	if _, _, err := s.handleStep(ctx, nil, EmptyInput{}); !errors.Is(err, session.ErrRunning) {
		t.Errorf("step while running error = %v, want ErrRunning", err)
	}

	_, paused, err := s.handlePause(ctx, nil, EmptyInput{})
	if err != nil {
		t.Fatalf("handlePause failed: %v", err)
	}
	if paused.Running {
		t.Error("still running after pause")
	}

	_, rewound, err := s.handleRewind(ctx, nil, EmptyInput{})
	if err != nil {
		t.Fatalf("handleRewind failed: %v", err)
	}
	if rewound.CurrentDay != 0 {
		t.Errorf("CurrentDay after rewind = %d, want 0", rewound.CurrentDay)
	}

	_, reset, err := s.handleReset(ctx, nil, EmptyInput{})
	if err != nil {
		t.Fatalf("handleReset failed: %v", err)
	}
	if reset.Ready {
		t.Error("Ready after reset")
	}
}

func TestHandleStart_NegativeSpeed(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	if _, _, err := s.handleInit(ctx, nil, InitInput{}); err != nil {
		t.Fatal(err)
	}
	speed := -5
	if _, _, err := s.handleStart(ctx, nil, StartInput{SpeedMs: &speed}); err == nil {
		t.Error("expected error for negative speed")
	}
}

func TestRateLimitedTool(t *testing.T) {
	s := newTestServer(t, &Config{
		Name:    "test",
		Version: "v0",
		Limits:  ratelimit.Limits{ratelimit.CmdGenerate: ratelimit.NewLimiter(0, 1)},
	})
	ctx := context.Background()

	if _, _, err := s.handleGenerate(ctx, nil, GenerateInput{Seed: 1}); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if _, _, err := s.handleGenerate(ctx, nil, GenerateInput{Seed: 1}); !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Errorf("second generate error = %v, want ErrRateLimited", err)
	}
}

func TestStateResource(t *testing.T) {
	s := newTestServer(t, nil)
	res, err := s.handleStateResource(context.Background(), nil)
	if err != nil {
		t.Fatalf("handleStateResource failed: %v", err)
	}
	if len(res.Contents) != 1 || res.Contents[0].MIMEType != "application/json" || res.Contents[0].Text == "" {
		t.Errorf("contents = %+v", res.Contents)
	}
}
