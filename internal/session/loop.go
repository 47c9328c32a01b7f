package session

import (
	"context"
	"time"

	"github.com/nvandessel/seird/internal/epidemic"
	"github.com/nvandessel/seird/internal/logging"
	"github.com/nvandessel/seird/internal/models"
	"github.com/nvandessel/seird/internal/store"
)

// loop advances sim until it finishes, fails or ctx is cancelled. The
// cancellation check happens between days; a day in progress always
// completes.
func (c *Controller) loop(ctx context.Context, sim *epidemic.Simulation, runID string, interval time.Duration, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(interval)
	timer.Stop()
	defer timer.Stop()

	reason := "paused"
	defer func() { c.stopLoop(done, sim, runID, reason) }()

	for {
		if ctx.Err() != nil {
			return
		}

		report, err := c.advance(sim)
		if err != nil {
			c.mu.Lock()
			c.lastError = err
			c.mu.Unlock()
			c.logger.Error("day advance failed", "run_id", runID, "error", err)
			reason = "failed"
			return
		}
		c.record(ctx, runID, report)

		if epidemic.Finished(report.Counts, sim.StopOnExposed()) {
			reason = "finished"
			return
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// stopLoop clears the running flag if done still belongs to the active loop.
func (c *Controller) stopLoop(done chan struct{}, sim *epidemic.Simulation, runID, reason string) {
	c.mu.Lock()
	if c.done == done {
		c.running = false
		c.cancel = nil
		c.done = nil
	}
	c.mu.Unlock()

	c.graphMu.RLock()
	day, counts := sim.Day(), sim.Counts()
	c.graphMu.RUnlock()

	c.logger.Info("simulation stopped", "run_id", runID, "reason", reason, "day", day,
		"infected", counts[models.Infected], "dead", counts[models.Dead])
}

// advance runs one day with the graph write-locked.
func (c *Controller) advance(sim *epidemic.Simulation) (epidemic.DayReport, error) {
	c.graphMu.Lock()
	defer c.graphMu.Unlock()
	return sim.Advance()
}

// record appends a completed day to history and the day trace. Storage
// failures are logged and do not stop the run.
func (c *Controller) record(ctx context.Context, runID string, report epidemic.DayReport) {
	ctx = context.WithoutCancel(ctx)
	if err := c.history.AppendDay(ctx, runID, store.NewDayRecord(report.Day, report.Counts)); err != nil {
		c.logger.Warn("failed to record day", "run_id", runID, "day", report.Day, "error", err)
	}

	c.logger.Debug("day advanced", "run_id", runID, "day", report.Day,
		"infected", report.Counts[models.Infected], "exposed", report.Counts[models.Exposed],
		"transitions", report.Flows.Total())
	if c.logger.Enabled(ctx, logging.LevelTrace) {
		for from, row := range report.Flows {
			for to, n := range row {
				if from == to || n == 0 {
					continue
				}
				c.logger.Log(ctx, logging.LevelTrace, "flow", "run_id", runID, "day", report.Day,
					"from", models.Status(from).Code(), "to", models.Status(to).Code(), "count", n)
			}
		}
	}

	c.dayLog.Log(logging.DayEntry{
		RunID:            runID,
		Day:              report.Day,
		Counts:           report.Counts.Map(),
		AmbientPressure:  report.AmbientPressure,
		Recovery:         report.Recovery,
		AvailableDoctors: report.AvailableDoctors,
		Transitions:      report.Flows.Total(),
	})
}
