// Package store persists simulation history: runs, per-day compartment
// counts and periodic graph snapshots.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

// Run describes one simulation run. A run starts on init (or start with an
// inline graph, or rewind) and ends when the session is re-seeded or reset.
type Run struct {
	ID         string        `json:"id"`
	Topology   string        `json:"topology,omitempty"`
	Population int           `json:"population"`
	Seed       uint64        `json:"seed,omitempty"`
	Params     models.Params `json:"params"`
	StartedAt  time.Time     `json:"started_at"`
}

// DayRecord is the compartment tally after one completed day.
type DayRecord struct {
	Day        int       `json:"day"`
	S          int       `json:"S"`
	E          int       `json:"E"`
	I          int       `json:"I"`
	R          int       `json:"R"`
	D          int       `json:"D"`
	RecordedAt time.Time `json:"recorded_at,omitzero"`
}

// NewDayRecord builds a record from counts.
func NewDayRecord(day int, c models.StatusCounts) DayRecord {
	return DayRecord{
		Day: day,
		S:   c[models.Susceptible],
		E:   c[models.Exposed],
		I:   c[models.Infected],
		R:   c[models.Recovered],
		D:   c[models.Dead],
	}
}

// Counts converts the record back to StatusCounts.
func (r DayRecord) Counts() models.StatusCounts {
	return models.StatusCounts{
		models.Susceptible: r.S,
		models.Exposed:     r.E,
		models.Infected:    r.I,
		models.Recovered:   r.R,
		models.Dead:        r.D,
	}
}

// String renders the record as "Day d: S=.. E=.. I=.. R=.. D=..".
func (r DayRecord) String() string {
	return fmt.Sprintf("Day %d: S=%d E=%d I=%d R=%d D=%d", r.Day, r.S, r.E, r.I, r.R, r.D)
}

// Snapshot is a serialized graph captured at a given day of a run.
type Snapshot struct {
	RunID   string          `json:"run_id"`
	Day     int             `json:"day"`
	Graph   json.RawMessage `json:"graph"`
	TakenAt time.Time       `json:"taken_at"`
}

// NewSnapshot encodes g in the exchange format.
func NewSnapshot(runID string, day int, g *graph.ContactGraph) (Snapshot, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(graph.Encode(g)); err != nil {
		return Snapshot{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	return Snapshot{
		RunID:   runID,
		Day:     day,
		Graph:   bytes.TrimSpace(buf.Bytes()),
		TakenAt: time.Now().UTC(),
	}, nil
}

// Decode rebuilds the contact graph captured in the snapshot.
func (s Snapshot) Decode() (*graph.ContactGraph, error) {
	return graph.ReadJSON(bytes.NewReader(s.Graph))
}

// HistoryStore records runs, day tallies and graph snapshots.
type HistoryStore interface {
	// Runs
	CreateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context) ([]Run, error)

	// Days. AppendDay replaces an existing record for the same day.
	AppendDay(ctx context.Context, runID string, rec DayRecord) error
	Days(ctx context.Context, runID string) ([]DayRecord, error)

	// Snapshots. LatestSnapshot returns nil when the run has none.
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	LatestSnapshot(ctx context.Context, runID string) (*Snapshot, error)

	Close() error
}
