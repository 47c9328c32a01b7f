// Package session owns the live simulation: the current graph, its
// parameters and the background loop that advances days at a fixed cadence.
//
// Exactly one day-advance runs at a time. Manual Step calls and the
// automatic loop are gated by the same check-and-set under Controller.mu;
// the graph itself is write-locked for the duration of a day so concurrent
// State readers always see whole days.
//
// All public methods are safe for concurrent use.
package session

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/seird/internal/constants"
	"github.com/nvandessel/seird/internal/epidemic"
	"github.com/nvandessel/seird/internal/logging"
	"github.com/nvandessel/seird/internal/models"
	"github.com/nvandessel/seird/internal/network"
	"github.com/nvandessel/seird/internal/store"
)

// Config holds the defaults a Controller falls back to when a command omits
// them.
type Config struct {
	Network network.Options
	Params  models.Params

	// SpeedMs is the default delay between automatic days.
	SpeedMs int

	// Seed drives network generation and transitions. 0 picks a fresh
	// seed per run.
	Seed uint64

	// StopOnExposed makes the loop wait for Exposed to drain as well as
	// Infected before stopping.
	StopOnExposed bool
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		Network:       network.DefaultOptions(),
		Params:        models.DefaultParams(),
		SpeedMs:       constants.DefaultSpeedMs,
		StopOnExposed: true,
	}
}

// StepInterval converts a speed in milliseconds to the loop delay, floored
// at constants.MinStepInterval.
func StepInterval(speedMs int) time.Duration {
	return max(constants.MinStepInterval, time.Duration(speedMs)*time.Millisecond)
}

// Controller is the session object behind every boundary layer.
type Controller struct {
	cfg     Config
	logger  *slog.Logger
	dayLog  *logging.DayLogger
	history store.HistoryStore
	newID   func() string

	mu        sync.Mutex
	sim       *epidemic.Simulation
	rng       *rand.Rand
	runID     string
	seed      uint64
	topology  network.Topology
	speedMs   int
	running   bool
	stepping  bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastError error

	// graphMu is write-held while a day is advanced and read-held while
	// the graph or the simulation counters are observed.
	graphMu sync.RWMutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithDayLogger sets the per-day JSONL trace.
func WithDayLogger(dl *logging.DayLogger) Option {
	return func(c *Controller) { c.dayLog = dl }
}

// WithHistory records runs and day tallies in h.
func WithHistory(h store.HistoryStore) Option {
	return func(c *Controller) { c.history = h }
}

// WithIDGenerator replaces the uuid run id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// New creates a controller with no session loaded.
func New(cfg Config, opts ...Option) *Controller {
	if cfg.SpeedMs == 0 {
		cfg.SpeedMs = constants.DefaultSpeedMs
	}
	c := &Controller{
		cfg:     cfg,
		logger:  logging.Discard(),
		history: store.NewInMemoryHistoryStore(),
		newID:   uuid.NewString,
		speedMs: cfg.SpeedMs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the controller defaults.
func (c *Controller) Config() Config { return c.cfg }
