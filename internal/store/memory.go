package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryHistoryStore implements HistoryStore for tests and for servers
// started without a database.
type InMemoryHistoryStore struct {
	mu        sync.RWMutex
	runs      map[string]Run
	days      map[string][]DayRecord
	snapshots map[string][]Snapshot
}

// NewInMemoryHistoryStore creates an empty store.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		runs:      make(map[string]Run),
		days:      make(map[string][]DayRecord),
		snapshots: make(map[string][]Snapshot),
	}
}

// CreateRun registers a run. Re-creating an existing id replaces it.
func (s *InMemoryHistoryStore) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// GetRun returns the run or ErrRunNotFound.
func (s *InMemoryHistoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return &run, nil
}

// ListRuns returns every run, newest first.
func (s *InMemoryHistoryStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// AppendDay stores rec under runID.
func (s *InMemoryHistoryStore) AppendDay(ctx context.Context, runID string, rec DayRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	days := s.days[runID]
	for i := range days {
		if days[i].Day == rec.Day {
			days[i] = rec
			return nil
		}
	}
	days = append(days, rec)
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	s.days[runID] = days
	return nil
}

// Days returns the run's records ordered by day.
func (s *InMemoryHistoryStore) Days(ctx context.Context, runID string) ([]DayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return append([]DayRecord{}, s.days[runID]...), nil
}

// SaveSnapshot stores snap, replacing an earlier snapshot of the same day.
func (s *InMemoryHistoryStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[snap.RunID]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, snap.RunID)
	}
	snaps := s.snapshots[snap.RunID]
	for i := range snaps {
		if snaps[i].Day == snap.Day {
			snaps[i] = snap
			return nil
		}
	}
	s.snapshots[snap.RunID] = append(snaps, snap)
	return nil
}

// LatestSnapshot returns the snapshot with the highest day, or nil.
func (s *InMemoryHistoryStore) LatestSnapshot(ctx context.Context, runID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Snapshot
	for i := range s.snapshots[runID] {
		snap := s.snapshots[runID][i]
		if latest == nil || snap.Day > latest.Day {
			latest = &snap
		}
	}
	return latest, nil
}

// Close is a no-op.
func (s *InMemoryHistoryStore) Close() error { return nil }
