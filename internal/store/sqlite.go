package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeFormat is RFC 3339 with fixed-width nanoseconds so stored timestamps
// sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteHistoryStore implements HistoryStore on a single SQLite file.
type SQLiteHistoryStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteHistoryStore opens (creating if needed) the database at dbPath.
func NewSQLiteHistoryStore(dbPath string) (*SQLiteHistoryStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteHistoryStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteHistoryStore) Path() string { return s.dbPath }

// CreateRun inserts or replaces a run.
func (s *SQLiteHistoryStore) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, topology, population, seed, params, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Topology, run.Population, int64(run.Seed), string(params),
		run.StartedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns the run or ErrRunNotFound.
func (s *SQLiteHistoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, topology, population, seed, params, started_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns every run, newest first.
func (s *SQLiteHistoryStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topology, population, seed, params, started_at
		FROM runs ORDER BY started_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		topology  sql.NullString
		seed      sql.NullInt64
		params    string
		startedAt string
	)
	if err := row.Scan(&run.ID, &topology, &run.Population, &seed, &params, &startedAt); err != nil {
		return nil, err
	}
	run.Topology = topology.String
	run.Seed = uint64(seed.Int64)
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return nil, fmt.Errorf("failed to parse params for run %s: %w", run.ID, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		run.StartedAt = t
	}
	return &run, nil
}

func (s *SQLiteHistoryStore) requireRun(ctx context.Context, runID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return err
}

// AppendDay inserts or replaces the record for rec.Day.
func (s *SQLiteHistoryStore) AppendDay(ctx context.Context, runID string, rec DayRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(ctx, runID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO days (run_id, day, susceptible, exposed, infected, recovered, dead, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Day, rec.S, rec.E, rec.I, rec.R, rec.D, rec.RecordedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to record day %d of run %s: %w", rec.Day, runID, err)
	}
	return nil
}

// Days returns the run's records ordered by day.
func (s *SQLiteHistoryStore) Days(ctx context.Context, runID string) ([]DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, susceptible, exposed, infected, recovered, dead, recorded_at
		FROM days WHERE run_id = ? ORDER BY day`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query days: %w", err)
	}
	defer rows.Close()

	days := []DayRecord{}
	for rows.Next() {
		var rec DayRecord
		var recordedAt string
		if err := rows.Scan(&rec.Day, &rec.S, &rec.E, &rec.I, &rec.R, &rec.D, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			rec.RecordedAt = t
		}
		days = append(days, rec)
	}
	return days, rows.Err()
}

// SaveSnapshot inserts or replaces the snapshot for snap.Day.
func (s *SQLiteHistoryStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(ctx, snap.RunID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (run_id, day, graph, taken_at) VALUES (?, ?, ?, ?)`,
		snap.RunID, snap.Day, string(snap.Graph), snap.TakenAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to save snapshot for run %s: %w", snap.RunID, err)
	}
	return nil
}

// LatestSnapshot returns the highest-day snapshot of the run, or nil.
func (s *SQLiteHistoryStore) LatestSnapshot(ctx context.Context, runID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		snap    Snapshot
		g       string
		takenAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, day, graph, taken_at FROM snapshots
		WHERE run_id = ? ORDER BY day DESC LIMIT 1`, runID).Scan(&snap.RunID, &snap.Day, &g, &takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap.Graph = json.RawMessage(g)
	if t, err := time.Parse(time.RFC3339Nano, takenAt); err == nil {
		snap.TakenAt = t
	}
	return &snap, nil
}

// Close closes the database.
func (s *SQLiteHistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
