// Package checkpoint periodically persists the live graph of a session to
// the history store on a cron schedule.
package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/nvandessel/seird/internal/logging"
	"github.com/nvandessel/seird/internal/store"
)

// parser accepts standard five-field specs and descriptors such as
// "@every 30s" or "@hourly".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Source yields the current graph snapshot. ok is false when there is
// nothing to capture.
type Source interface {
	Snapshot() (snap store.Snapshot, ok bool, err error)
}

// ParseSchedule validates a schedule spec.
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Scheduler saves a snapshot each time its schedule fires. A snapshot of
// the same run and day as the previous one is skipped.
type Scheduler struct {
	cron   *cron.Cron
	source Source
	store  store.HistoryStore
	logger *slog.Logger

	mu      sync.Mutex
	lastRun string
	lastDay int
	saved   int
}

// New creates a scheduler for spec. It does not start until Run.
func New(spec string, src Source, st store.HistoryStore, logger *slog.Logger) (*Scheduler, error) {
	sched, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithParser(parser)),
		source:  src,
		store:   st,
		logger:  logger,
		lastDay: -1,
	}
	s.cron.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.Checkpoint(context.Background()); err != nil {
			s.logger.Warn("checkpoint failed", "error", err)
		}
	}))
	return s, nil
}

// Checkpoint captures and stores one snapshot now. It reports whether a
// snapshot was written.
func (s *Scheduler) Checkpoint(ctx context.Context) (bool, error) {
	snap, ok, err := s.source.Snapshot()
	if err != nil {
		return false, fmt.Errorf("capturing snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.RunID == s.lastRun && snap.Day == s.lastDay {
		return false, nil
	}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return false, fmt.Errorf("saving snapshot: %w", err)
	}
	s.lastRun, s.lastDay = snap.RunID, snap.Day
	s.saved++
	s.logger.Debug("checkpoint saved", "run_id", snap.RunID, "day", snap.Day)
	return true, nil
}

// Saved returns the number of snapshots written so far.
func (s *Scheduler) Saved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running checkpoint to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
