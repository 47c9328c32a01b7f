package checkpoint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nvandessel/seird/internal/store"
)

type fakeSource struct {
	mu   sync.Mutex
	snap store.Snapshot
	ok   bool
	err  error
}

func (f *fakeSource) Snapshot() (store.Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.ok, f.err
}

func (f *fakeSource) set(day int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Day = day
}

func newStore(t *testing.T) store.HistoryStore {
	t.Helper()
	st := store.NewInMemoryHistoryStore()
	if err := st.CreateRun(context.Background(), store.Run{ID: "r", Population: 1}); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	return st
}

func TestParseSchedule(t *testing.T) {
	for _, spec := range []string{"@every 30s", "*/5 * * * *", "@hourly"} {
		if _, err := ParseSchedule(spec); err != nil {
			t.Errorf("ParseSchedule(%q) error = %v", spec, err)
		}
	}
	for _, spec := range []string{"", "every minute", "* * *"} {
		if _, err := ParseSchedule(spec); err == nil {
			t.Errorf("ParseSchedule(%q) expected error", spec)
		}
	}
}

func TestCheckpoint_SkipsUnchangedDay(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	src := &fakeSource{snap: store.Snapshot{RunID: "r", Day: 1, Graph: []byte(`{"nodes":[],"links":[]}`)}, ok: true}

	s, err := New("@every 1h", src, st, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	wrote, err := s.Checkpoint(ctx)
	if err != nil || !wrote {
		t.Fatalf("first Checkpoint() = %v, %v", wrote, err)
	}
	wrote, err = s.Checkpoint(ctx)
	if err != nil || wrote {
		t.Fatalf("repeat Checkpoint() = %v, %v, want skipped", wrote, err)
	}

	src.set(4)
	if wrote, err := s.Checkpoint(ctx); err != nil || !wrote {
		t.Fatalf("Checkpoint() after new day = %v, %v", wrote, err)
	}
	if s.Saved() != 2 {
		t.Errorf("Saved() = %d, want 2", s.Saved())
	}

	latest, err := st.LatestSnapshot(ctx, "r")
	if err != nil || latest == nil || latest.Day != 4 {
		t.Errorf("LatestSnapshot() = %+v, %v", latest, err)
	}
}

func TestCheckpoint_NothingToCapture(t *testing.T) {
	s, err := New("@every 1h", &fakeSource{}, newStore(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if wrote, err := s.Checkpoint(context.Background()); err != nil || wrote {
		t.Errorf("Checkpoint() = %v, %v, want no-op", wrote, err)
	}
}

func TestCheckpoint_Errors(t *testing.T) {
	boom := errors.New("boom")
	s, err := New("@every 1h", &fakeSource{err: boom}, newStore(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Checkpoint(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Checkpoint() error = %v, want boom", err)
	}

	missing := &fakeSource{snap: store.Snapshot{RunID: "missing"}, ok: true}
	s, err = New("@every 1h", missing, newStore(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Checkpoint(context.Background()); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("Checkpoint() error = %v, want ErrRunNotFound", err)
	}

	if _, err := New("nonsense", missing, newStore(t), nil); err == nil {
		t.Error("New() with bad schedule should fail")
	}
}

func TestScheduler_Run(t *testing.T) {
	src := &fakeSource{snap: store.Snapshot{RunID: "r", Day: 2, Graph: []byte(`{}`)}, ok: true}
	s, err := New("@every 1s", src, newStore(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for s.Saved() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduled checkpoint never ran")
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
