package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSupervisorNoPaths(t *testing.T) {
	s := NewSupervisor([]string{filepath.Join(t.TempDir(), "absent.yaml")}, func(string) error {
		t.Error("reload called without any watched file")
		return nil
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.State() != Idle {
		t.Errorf("State() = %v, want idle", s.State())
	}
	s.Stop()
}

func TestSupervisorCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.env")
	os.WriteFile(path, []byte("A=1\n"), 0600)

	var calls atomic.Int32
	var lastPath atomic.Value
	s := NewSupervisor([]string{path, path}, func(p string) error {
		calls.Add(1)
		lastPath.Store(p)
		return nil
	}, SupervisorDebounce(100*time.Millisecond))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if s.State() != Watching {
		t.Fatalf("State() = %v, want watching", s.State())
	}

	for i := 0; i < 5; i++ {
		os.WriteFile(path, []byte("A=2\n"), 0600)
	}

	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(300 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("reload called %d times, want 1", calls.Load())
	}
	if got, _ := lastPath.Load().(string); filepath.Base(got) != "app.env" {
		t.Errorf("reload path = %q, want app.env", got)
	}
}

func TestSupervisorIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.yaml")
	os.WriteFile(path, []byte("a: 1\n"), 0600)

	var calls atomic.Int32
	s := NewSupervisor([]string{path}, func(string) error {
		calls.Add(1)
		return nil
	}, SupervisorDebounce(20*time.Millisecond))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("b: 2\n"), 0600)
	time.Sleep(200 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("reload called %d times for an unwatched file", calls.Load())
	}
}

func TestSupervisorSurvivesReloadFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("a: 1\n"), 0600)

	var calls atomic.Int32
	s := NewSupervisor([]string{path}, func(string) error {
		if calls.Add(1) == 1 {
			panic("callback exploded")
		}
		return errors.New("bad config")
	}, SupervisorDebounce(20*time.Millisecond))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	os.WriteFile(path, []byte("a: 2\n"), 0600)
	waitFor(t, func() bool { return calls.Load() == 1 && s.State() == Watching })

	os.WriteFile(path, []byte("a: 3\n"), 0600)
	waitFor(t, func() bool { return calls.Load() == 2 && s.State() == Watching })
}

func TestSupervisorStopOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("a: 1\n"), 0600)

	s := NewSupervisor([]string{path}, func(string) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	waitFor(t, func() bool { return s.State() == Idle })
	s.Stop()
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{Idle: "idle", Watching: "watching", Reloading: "reloading"} {
		if state.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", state, state.String(), want)
		}
	}
}
