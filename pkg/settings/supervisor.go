package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// State is the supervisor state
type State int32

const (
	Idle State = iota
	Watching
	Reloading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Watching:
		return "watching"
	case Reloading:
		return "reloading"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// SupervisorOption configures a Supervisor
type SupervisorOption func(*Supervisor)

// SupervisorDebounce sets the event coalescing window
func SupervisorDebounce(d time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.debounce = d }
}

// SupervisorLogger sets the logger
func SupervisorLogger(l *zap.Logger) SupervisorOption {
	return func(s *Supervisor) { s.logger = l }
}

// Supervisor watches files and calls reload once per observed modification.
// Reload errors are logged and otherwise ignored.
type Supervisor struct {
	paths    []string
	reload   func(path string) error
	debounce time.Duration
	logger   *zap.Logger

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor creates an idle supervisor for paths
func NewSupervisor(paths []string, reload func(path string) error, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		paths:    paths,
		reload:   reload,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Start begins watching every path that exists now; paths created later are
// never observed. With nothing to watch it returns nil and stays Idle.
// Calling Start on a running supervisor does nothing.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return nil
	}

	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range s.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	if len(watched) == 0 {
		s.logger.Debug("no existing files to watch")
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch directories so atomic-rename saves are seen
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state.Store(int32(Watching))

	files := make([]string, 0, len(watched))
	for p := range watched {
		files = append(files, p)
	}
	sort.Strings(files)
	s.logger.Info("watching settings files", zap.Strings("paths", files))

	go s.loop(ctx, w, watched, s.done)
	return nil
}

// Stop ends watching and waits for the loop to exit. A stopped supervisor
// may be started again.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}

func (s *Supervisor) loop(ctx context.Context, w *fsnotify.Watcher, watched map[string]bool, done chan struct{}) {
	defer close(done)
	defer s.state.Store(int32(Idle))
	defer w.Close()

	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	var pending string
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			name := filepath.Clean(ev.Name)
			if !watched[name] || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if pending == "" {
				pending = name
			}
			timer.Reset(s.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			path := pending
			pending = ""
			s.runReload(path)
		}
	}
}

func (s *Supervisor) runReload(path string) {
	s.state.Store(int32(Reloading))
	defer s.state.Store(int32(Watching))

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("settings reload panicked", zap.String("path", path), zap.Any("panic", r))
		}
	}()

	if err := s.reload(path); err != nil {
		s.logger.Warn("settings reload failed, keeping previous settings",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}
