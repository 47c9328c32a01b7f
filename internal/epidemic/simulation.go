package epidemic

import (
	"fmt"
	"math/rand/v2"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
)

// Simulation owns a graph together with its parameters, random stream and
// day counter. It is not safe for concurrent use; session.Controller
// provides the locking.
type Simulation struct {
	graph  *graph.ContactGraph
	params models.Params
	rng    *rand.Rand

	day    int
	counts models.StatusCounts
	buf    []models.Status

	stopOnExposed bool
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithStopOnExposed makes Finished also require zero Exposed individuals.
func WithStopOnExposed(v bool) Option {
	return func(s *Simulation) { s.stopOnExposed = v }
}

// WithDay starts the counter at day instead of 0.
func WithDay(day int) Option {
	return func(s *Simulation) { s.day = day }
}

// New creates a simulation over g. params are validated; the graph is
// used in place, not copied.
func New(g *graph.ContactGraph, params models.Params, rng *rand.Rand, opts ...Option) (*Simulation, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("simulation requires a random source")
	}
	s := &Simulation{
		graph:         g,
		params:        params,
		rng:           rng,
		counts:        g.Counts(),
		buf:           make([]models.Status, 0, g.Len()),
		stopOnExposed: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Advance runs one day and increments the day counter once the full pass
// has completed.
func (s *Simulation) Advance() (DayReport, error) {
	report, buf, err := AdvanceOneDay(s.graph, s.params, s.rng, s.buf)
	s.buf = buf
	if err != nil {
		return report, err
	}
	s.day++
	s.counts = report.Counts
	report.Day = s.day
	return report, nil
}

// Day returns the number of completed days.
func (s *Simulation) Day() int { return s.day }

// Counts returns the current per-status counts without scanning the graph.
func (s *Simulation) Counts() models.StatusCounts { return s.counts }

// Graph returns the simulated graph.
func (s *Simulation) Graph() *graph.ContactGraph { return s.graph }

// Params returns the scenario parameters.
func (s *Simulation) Params() models.Params { return s.params }

// StopOnExposed reports whether Finished waits for Exposed to drain.
func (s *Simulation) StopOnExposed() bool { return s.stopOnExposed }

// Finished reports whether the outbreak has ended: no Infected remain and,
// when stopOnExposed is set, no Exposed either.
func (s *Simulation) Finished() bool {
	return Finished(s.counts, s.stopOnExposed)
}

// Finished applies the termination rule to counts.
func Finished(counts models.StatusCounts, stopOnExposed bool) bool {
	if counts[models.Infected] > 0 {
		return false
	}
	return !stopOnExposed || counts[models.Exposed] == 0
}

// Run advances up to days days, stopping early once Finished holds. fn, if
// non-nil, is called after every day.
func (s *Simulation) Run(days int, fn func(DayReport) error) error {
	for range days {
		if s.Finished() {
			return nil
		}
		report, err := s.Advance()
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(report); err != nil {
				return err
			}
		}
	}
	return nil
}
