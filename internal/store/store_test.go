package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
)

func openStores(t *testing.T) map[string]HistoryStore {
	t.Helper()
	sqlite, err := NewSQLiteHistoryStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("NewSQLiteHistoryStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]HistoryStore{
		"memory": NewInMemoryHistoryStore(),
		"sqlite": sqlite,
	}
}

func testGraph(t *testing.T) *graph.ContactGraph {
	t.Helper()
	g := graph.New(2)
	for i, s := range []models.Status{models.Infected, models.Susceptible} {
		days := graph.DaysUnset
		if s == models.Infected {
			days = 0
		}
		if _, err := g.AddIndividual(graph.Individual{ID: graph.IndexID(i), Age: 30 + i, Status: s, InitialStatus: s, DaysInfected: days, Hub: graph.NoHub}); err != nil {
			t.Fatalf("AddIndividual: %v", err)
		}
	}
	if err := g.AddEdge(0, 1, 0.5); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	return g
}

func TestHistoryStore_Runs(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			older := Run{ID: "run-a", Topology: "small-world", Population: 100, Seed: 1 << 63, Params: models.DefaultParams(), StartedAt: time.Now().Add(-time.Hour)}
			newer := Run{ID: "run-b", Population: 50, Params: models.DefaultParams()}
			for _, r := range []Run{older, newer} {
				if err := s.CreateRun(ctx, r); err != nil {
					t.Fatalf("CreateRun(%s) error = %v", r.ID, err)
				}
			}

			got, err := s.GetRun(ctx, "run-a")
			if err != nil {
				t.Fatalf("GetRun() error = %v", err)
			}
			if got.Seed != 1<<63 || got.Topology != "small-world" || got.Params != models.DefaultParams() {
				t.Errorf("GetRun() = %+v", got)
			}

			runs, err := s.ListRuns(ctx)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != 2 || runs[0].ID != "run-b" {
				t.Errorf("ListRuns() order = %v, want run-b first", runs)
			}

			if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("GetRun(missing) error = %v, want ErrRunNotFound", err)
			}
			if err := s.CreateRun(ctx, Run{}); err == nil {
				t.Error("CreateRun() with empty id should fail")
			}
		})
	}
}

func TestHistoryStore_Days(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.CreateRun(ctx, Run{ID: "r", Population: 10}); err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}

			c := models.StatusCounts{models.Susceptible: 7, models.Infected: 3}
			for _, day := range []int{2, 1, 3} {
				if err := s.AppendDay(ctx, "r", NewDayRecord(day, c)); err != nil {
					t.Fatalf("AppendDay(%d) error = %v", day, err)
				}
			}
			c[models.Recovered], c[models.Infected] = 3, 0
			if err := s.AppendDay(ctx, "r", NewDayRecord(3, c)); err != nil {
				t.Fatalf("AppendDay(replace) error = %v", err)
			}

			days, err := s.Days(ctx, "r")
			if err != nil {
				t.Fatalf("Days() error = %v", err)
			}
			if len(days) != 3 {
				t.Fatalf("Days() len = %d, want 3", len(days))
			}
			for i, d := range days {
				if d.Day != i+1 {
					t.Errorf("days[%d].Day = %d, want %d", i, d.Day, i+1)
				}
			}
			if days[2].Counts() != c {
				t.Errorf("replaced day = %v, want %v", days[2].Counts(), c)
			}

			if err := s.AppendDay(ctx, "missing", NewDayRecord(1, c)); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("AppendDay(missing) error = %v, want ErrRunNotFound", err)
			}
			if _, err := s.Days(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("Days(missing) error = %v, want ErrRunNotFound", err)
			}
		})
	}
}

func TestHistoryStore_Snapshots(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.CreateRun(ctx, Run{ID: "r", Population: 2}); err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}

			none, err := s.LatestSnapshot(ctx, "r")
			if err != nil || none != nil {
				t.Fatalf("LatestSnapshot() on empty run = %v, %v", none, err)
			}

			g := testGraph(t)
			for _, day := range []int{5, 2} {
				snap, err := NewSnapshot("r", day, g)
				if err != nil {
					t.Fatalf("NewSnapshot() error = %v", err)
				}
				if err := s.SaveSnapshot(ctx, snap); err != nil {
					t.Fatalf("SaveSnapshot() error = %v", err)
				}
			}

			latest, err := s.LatestSnapshot(ctx, "r")
			if err != nil {
				t.Fatalf("LatestSnapshot() error = %v", err)
			}
			if latest == nil || latest.Day != 5 {
				t.Fatalf("LatestSnapshot() = %+v, want day 5", latest)
			}
			restored, err := latest.Decode()
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if restored.Counts() != g.Counts() || restored.EdgeCount() != 1 {
				t.Errorf("restored graph counts/edges = %v/%d", restored.Counts(), restored.EdgeCount())
			}

			if err := s.SaveSnapshot(ctx, Snapshot{RunID: "missing", Graph: []byte(`{}`)}); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("SaveSnapshot(missing) error = %v, want ErrRunNotFound", err)
			}
		})
	}
}

func TestSQLiteHistoryStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := NewSQLiteHistoryStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteHistoryStore() error = %v", err)
	}
	if err := s.CreateRun(ctx, Run{ID: "persisted", Population: 1}); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := s.AppendDay(ctx, "persisted", DayRecord{Day: 1, S: 1}); err != nil {
		t.Fatalf("AppendDay() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2, err := NewSQLiteHistoryStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s2.Close()
	days, err := s2.Days(ctx, "persisted")
	if err != nil {
		t.Fatalf("Days() error = %v", err)
	}
	if len(days) != 1 || days[0].S != 1 {
		t.Errorf("Days() after reopen = %v", days)
	}
	if s2.Path() != path {
		t.Errorf("Path() = %q, want %q", s2.Path(), path)
	}
}

func TestResetSchema(t *testing.T) {
	s, err := NewSQLiteHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLiteHistoryStore() error = %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.CreateRun(ctx, Run{ID: "gone", Population: 1}); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := ResetSchema(ctx, s.db); err != nil {
		t.Fatalf("ResetSchema() error = %v", err)
	}
	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("ListRuns() after reset = %v", runs)
	}
	if err := ValidateIntegrity(ctx, s.db); err != nil {
		t.Errorf("ValidateIntegrity() error = %v", err)
	}
}

func TestDayRecord_String(t *testing.T) {
	rec := NewDayRecord(4, models.StatusCounts{models.Susceptible: 90, models.Exposed: 3, models.Infected: 5, models.Recovered: 1, models.Dead: 1})
	want := "Day 4: S=90 E=3 I=5 R=1 D=1"
	if rec.String() != want {
		t.Errorf("String() = %q, want %q", rec.String(), want)
	}
}

func TestDaysJSONL(t *testing.T) {
	in := []DayRecord{{Day: 1, S: 9, I: 1}, {Day: 2, S: 8, E: 1, I: 1}}
	var buf bytes.Buffer
	if err := WriteDaysJSONL(&buf, in); err != nil {
		t.Fatalf("WriteDaysJSONL() error = %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Errorf("expected two lines, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"S":9`) {
		t.Errorf("missing letter-keyed counts: %q", buf.String())
	}

	out, err := ReadDaysJSONL(strings.NewReader(buf.String() + "\n"))
	if err != nil {
		t.Fatalf("ReadDaysJSONL() error = %v", err)
	}
	if len(out) != 2 || out[1].E != 1 {
		t.Errorf("ReadDaysJSONL() = %v", out)
	}

	if _, err := ReadDaysJSONL(strings.NewReader("{bad\n")); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestOpen(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	if _, ok := s.(*InMemoryHistoryStore); !ok {
		t.Errorf("Open(\"\") = %T, want in-memory store", s)
	}

	s, err = Open(filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("Open(path) error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteHistoryStore); !ok {
		t.Errorf("Open(path) = %T, want SQLite store", s)
	}
}
