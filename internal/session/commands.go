package session

import (
	"context"
	"fmt"
	"time"

	"github.com/nvandessel/seird/internal/epidemic"
	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
	"github.com/nvandessel/seird/internal/network"
	"github.com/nvandessel/seird/internal/store"
)

// InitRequest loads a new session. Nil fields fall back to Config.
type InitRequest struct {
	Params *models.Params
	// Graph replaces the generated network when set.
	Graph *graph.ContactGraph
	// Topology overrides Config.Network.Topology for a generated network.
	Topology network.Topology
	// Seed overrides Config.Seed.
	Seed uint64
}

// StartRequest starts the automatic loop. A Graph replaces the session
// graph and restarts the run at day 0; Params replace the session
// parameters from the next day on.
type StartRequest struct {
	Params  *models.Params
	Graph   *graph.ContactGraph
	SpeedMs *int
}

// Init builds or installs a graph and resets the day counter.
func (c *Controller) Init(ctx context.Context, req InitRequest) (State, error) {
	c.mu.Lock()
	if c.running || c.stepping {
		c.mu.Unlock()
		return State{}, ErrRunning
	}

	params := c.cfg.Params
	if req.Params != nil {
		params = *req.Params
	}
	if err := params.Validate(); err != nil {
		c.mu.Unlock()
		return State{}, err
	}

	seed := resolveSeed(req.Seed, c.cfg.Seed)
	topology := req.Topology
	g := req.Graph
	if g == nil {
		var err error
		g, _, err = c.generate(topology, seed)
		if err != nil {
			c.mu.Unlock()
			return State{}, err
		}
		if topology == "" {
			topology = c.cfg.Network.Topology
		}
	}

	err := c.install(ctx, g, params, seed, topology)
	c.mu.Unlock()
	if err != nil {
		return State{}, err
	}
	return c.State(false), nil
}

// Start launches the background loop and returns once it is scheduled.
// The first day is advanced immediately.
func (c *Controller) Start(ctx context.Context, req StartRequest) (State, error) {
	c.mu.Lock()
	if c.running || c.stepping {
		c.mu.Unlock()
		return State{}, ErrAlreadyRunning
	}

	if req.Params != nil {
		if err := req.Params.Validate(); err != nil {
			c.mu.Unlock()
			return State{}, err
		}
	}

	switch {
	case req.Graph != nil:
		params := c.cfg.Params
		if c.sim != nil {
			params = c.sim.Params()
		}
		if req.Params != nil {
			params = *req.Params
		}
		if err := c.install(ctx, req.Graph, params, resolveSeed(0, c.cfg.Seed), ""); err != nil {
			c.mu.Unlock()
			return State{}, err
		}
	case c.sim == nil:
		c.mu.Unlock()
		return State{}, ErrUninitialized
	case req.Params != nil && *req.Params != c.sim.Params():
		sim, err := epidemic.New(c.sim.Graph(), *req.Params, c.rng,
			epidemic.WithDay(c.sim.Day()), epidemic.WithStopOnExposed(c.cfg.StopOnExposed))
		if err != nil {
			c.mu.Unlock()
			return State{}, err
		}
		c.sim = sim
	}

	if c.sim.Finished() {
		c.mu.Unlock()
		return State{}, ErrFinished
	}

	if req.SpeedMs != nil {
		c.speedMs = *req.SpeedMs
	}
	interval := StepInterval(c.speedMs)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.running = true
	c.cancel = cancel
	c.done = done
	c.lastError = nil
	sim, runID := c.sim, c.runID
	c.mu.Unlock()

	c.logger.Info("simulation started", "run_id", runID, "day", sim.Day(), "interval", interval)
	go c.loop(loopCtx, sim, runID, interval, done)
	return c.State(false), nil
}

// Step advances exactly one day. It is refused while the loop runs.
func (c *Controller) Step(ctx context.Context) (epidemic.DayReport, error) {
	c.mu.Lock()
	if c.sim == nil {
		c.mu.Unlock()
		return epidemic.DayReport{}, ErrUninitialized
	}
	if c.running || c.stepping {
		c.mu.Unlock()
		return epidemic.DayReport{}, ErrRunning
	}
	c.stepping = true
	sim, runID := c.sim, c.runID
	c.mu.Unlock()

	report, err := c.advance(sim)

	c.mu.Lock()
	c.stepping = false
	if err != nil {
		c.lastError = err
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("day advance failed", "run_id", runID, "error", err)
		return report, err
	}
	c.record(ctx, runID, report)
	return report, nil
}

// Pause stops the loop and waits for it to exit. An in-flight day
// completes first. Pausing an idle session is a no-op.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rewind restores every individual to its initial status and the day
// counter to 0, keeping the topology. The transition stream is reseeded
// so a rewound run replays identically.
func (c *Controller) Rewind(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.sim == nil {
		c.mu.Unlock()
		return State{}, ErrUninitialized
	}
	if c.running || c.stepping {
		c.mu.Unlock()
		return State{}, ErrRunning
	}

	c.graphMu.Lock()
	g := c.sim.Graph()
	g.ResetToInitial()
	c.graphMu.Unlock()

	err := c.install(ctx, g, c.sim.Params(), c.seed, c.topology)
	c.mu.Unlock()
	if err != nil {
		return State{}, err
	}
	return c.State(false), nil
}

// Reset pauses a running loop and tears the session down to empty.
func (c *Controller) Reset(ctx context.Context) error {
	if err := c.Pause(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	if c.stepping {
		return ErrRunning
	}
	if c.runID != "" {
		c.logger.Info("session reset", "run_id", c.runID)
	}
	c.sim = nil
	c.rng = nil
	c.runID = ""
	c.seed = 0
	c.topology = ""
	c.lastError = nil
	c.speedMs = c.cfg.SpeedMs
	return nil
}

// Shutdown stops the loop, if any, without discarding the session.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Pause(ctx)
}

// History returns the day tallies of the current run.
func (c *Controller) History(ctx context.Context) ([]store.DayRecord, error) {
	c.mu.Lock()
	runID := c.runID
	c.mu.Unlock()

	if runID == "" {
		return nil, ErrUninitialized
	}
	return c.history.Days(ctx, runID)
}

// GenerateGraph builds a network from the configured options without
// touching the session. A zero seed picks a fresh one; the seed used is
// returned.
func (c *Controller) GenerateGraph(topology network.Topology, seed uint64) (*graph.ContactGraph, uint64, error) {
	return c.generate(topology, resolveSeed(seed, 0))
}

// Snapshot captures the current graph for checkpointing. ok is false when
// no session is loaded.
func (c *Controller) Snapshot() (snap store.Snapshot, ok bool, err error) {
	c.mu.Lock()
	sim, runID := c.sim, c.runID
	c.mu.Unlock()
	if sim == nil {
		return store.Snapshot{}, false, nil
	}

	c.graphMu.RLock()
	defer c.graphMu.RUnlock()
	snap, err = store.NewSnapshot(runID, sim.Day(), sim.Graph())
	if err != nil {
		return store.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Store returns the store runs and snapshots are recorded in.
func (c *Controller) Store() store.HistoryStore { return c.history }

func (c *Controller) generate(topology network.Topology, seed uint64) (*graph.ContactGraph, uint64, error) {
	opts := c.cfg.Network
	if topology != "" {
		opts.Topology = topology
	}
	g, err := network.Build(opts, network.NewRand(seed))
	if err != nil {
		return nil, seed, err
	}
	return g, seed, nil
}

// install replaces the session with a fresh run over g. c.mu must be held.
func (c *Controller) install(ctx context.Context, g *graph.ContactGraph, params models.Params, seed uint64, topology network.Topology) error {
	rng := network.NewRand(seed + 1)
	sim, err := epidemic.New(g, params, rng, epidemic.WithStopOnExposed(c.cfg.StopOnExposed))
	if err != nil {
		return err
	}

	runID := c.newID()
	run := store.Run{
		ID:         runID,
		Topology:   string(topology),
		Population: g.Len(),
		Seed:       seed,
		Params:     params,
		StartedAt:  time.Now().UTC(),
	}
	if err := c.history.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	c.sim = sim
	c.rng = rng
	c.runID = runID
	c.seed = seed
	c.topology = topology
	c.lastError = nil

	counts := g.Counts()
	c.logger.Info("session initialized",
		"run_id", runID, "population", g.Len(), "edges", g.EdgeCount(),
		"infected", counts[models.Infected], "seed", seed)
	return nil
}

func resolveSeed(seeds ...uint64) uint64 {
	for _, s := range seeds {
		if s != 0 {
			return s
		}
	}
	return uint64(time.Now().UnixNano())
}
