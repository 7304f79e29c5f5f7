package settings

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	"github.com/russellromney/confidant/internal/crypto"
	"github.com/russellromney/confidant/pkg/loader"
)

const (
	// DefaultDebounce coalesces bursts of file events into one reload
	DefaultDebounce = 100 * time.Millisecond
	// DefaultEventBuffer is the capacity of the Events channel
	DefaultEventBuffer = 16
)

// ReloadEvent reports the outcome of one reload
type ReloadEvent struct {
	// Version is the live version after the attempt
	Version int
	// Path is the file that triggered the reload; empty for manual reloads
	Path string
	Err  error
	At   time.Time
}

type options struct {
	loaders     []loader.Loader
	schema      Schema
	keys        crypto.KeySource
	interpolate bool
	logger      *zap.Logger
	onChange    any
	watch       bool
	debounce    time.Duration
	eventBuffer int
}

// Option configures Load
type Option func(*options)

// WithLoaders appends loaders; later loaders take priority
func WithLoaders(loaders ...loader.Loader) Option {
	return func(o *options) { o.loaders = append(o.loaders, loaders...) }
}

// WithSchema sets the validation schema. For struct types Load builds a
// StructSchema when none is given.
func WithSchema(s Schema) Option {
	return func(o *options) { o.schema = s }
}

// WithKeySource sets where the master key comes from
func WithKeySource(keys crypto.KeySource) Option {
	return func(o *options) { o.keys = keys }
}

// WithInterpolation enables ${NAME} references between top-level fields
func WithInterpolation(enabled bool) Option {
	return func(o *options) { o.interpolate = enabled }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOnChange registers a callback run after every successful reload.
// The callback runs while the reload lock is held and must not call Reload.
func WithOnChange[T any](fn func(*Live[T])) Option {
	return func(o *options) { o.onChange = fn }
}

// WithWatch starts the hot-reload supervisor as part of Load
func WithWatch(enabled bool) Option {
	return func(o *options) { o.watch = enabled }
}

// WithDebounce sets the window used to coalesce file events
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithEventBuffer sets the capacity of the Events channel
func WithEventBuffer(n int) Option {
	return func(o *options) { o.eventBuffer = n }
}

type state[T any] struct {
	snapshot *Snapshot
	value    T
}

// Live owns the current settings of type T. Reads are lock-free and always
// see one complete snapshot; reloads are serialized.
type Live[T any] struct {
	engine   *Engine
	decode   func(map[string]any) (T, error)
	onChange func(*Live[T])
	logger   *zap.Logger
	events   chan ReloadEvent
	debounce time.Duration

	current atomic.Pointer[state[T]]
	mu      sync.Mutex

	supMu      sync.Mutex
	supervisor *Supervisor
}

// Load resolves the settings once (version 1) and returns the live handle
func Load[T any](opts ...Option) (*Live[T], error) {
	o := options{
		logger:      zap.NewNop(),
		debounce:    DefaultDebounce,
		eventBuffer: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(&o)
	}

	decode, schema, err := decoderFor[T](o.schema)
	if err != nil {
		return nil, err
	}

	l := &Live[T]{
		engine: &Engine{
			Loaders:     o.loaders,
			Schema:      schema,
			Keys:        o.keys,
			Interpolate: o.interpolate,
			Logger:      o.logger,
		},
		decode:   decode,
		logger:   o.logger,
		events:   make(chan ReloadEvent, o.eventBuffer),
		debounce: o.debounce,
	}
	if o.onChange != nil {
		fn, ok := o.onChange.(func(*Live[T]))
		if !ok {
			return nil, fmt.Errorf("settings: on-change callback %T does not match %T", o.onChange, l)
		}
		l.onChange = fn
	}

	st, err := l.resolve(0)
	if err != nil {
		return nil, err
	}
	l.current.Store(st)

	if o.watch {
		if err := l.Watch(context.Background()); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// decoderFor picks how a snapshot becomes a T
func decoderFor[T any](schema Schema) (func(map[string]any) (T, error), Schema, error) {
	if d, ok := schema.(interface {
		Decode(map[string]any) (T, error)
	}); ok {
		return d.Decode, schema, nil
	}

	t := reflect.TypeOf((*T)(nil)).Elem()
	if schema == nil && t.Kind() == reflect.Struct {
		s, err := NewStructSchema[T]()
		if err != nil {
			return nil, nil, err
		}
		return s.Decode, s, nil
	}

	if t == reflect.TypeOf(map[string]any(nil)) {
		return func(m map[string]any) (T, error) {
			return any(m).(T), nil
		}, schema, nil
	}

	return func(m map[string]any) (T, error) {
		var out T
		err := mapstructure.WeakDecode(m, &out)
		return out, err
	}, schema, nil
}

func (l *Live[T]) resolve(previous int) (*state[T], error) {
	snap, err := l.engine.Resolve(previous)
	if err != nil {
		return nil, err
	}
	value, err := l.decode(snap.Fields())
	if err != nil {
		return nil, &ResolveError{Stage: StageDecode, Err: err}
	}
	return &state[T]{snapshot: snap, value: value}, nil
}

// Current returns the live snapshot
func (l *Live[T]) Current() *Snapshot {
	return l.current.Load().snapshot
}

// Value returns the typed settings of the live snapshot
func (l *Live[T]) Value() T {
	return l.current.Load().value
}

// Version returns the live snapshot version
func (l *Live[T]) Version() int {
	return l.current.Load().snapshot.version
}

// Events delivers one ReloadEvent per reload attempt. Sends never block;
// events are dropped while the buffer is full.
func (l *Live[T]) Events() <-chan ReloadEvent {
	return l.events
}

// Reload re-resolves all sources. On failure the error is returned and the
// previous snapshot stays live.
func (l *Live[T]) Reload() error {
	return l.reload("")
}

func (l *Live[T]) reload(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.current.Load()
	next, err := l.resolve(prev.snapshot.version)
	if err != nil {
		l.publish(ReloadEvent{Version: prev.snapshot.version, Path: path, Err: err, At: time.Now()})
		return err
	}

	l.current.Store(next)
	l.logger.Info("settings reloaded",
		zap.Int("version", next.snapshot.version),
		zap.String("path", path),
	)
	l.publish(ReloadEvent{Version: next.snapshot.version, Path: path, At: next.snapshot.loadedAt})

	if l.onChange != nil {
		l.onChange(l)
	}
	return nil
}

func (l *Live[T]) publish(ev ReloadEvent) {
	select {
	case l.events <- ev:
	default:
		l.logger.Debug("reload event dropped", zap.Int("version", ev.Version))
	}
}

// Watch starts the hot-reload supervisor over the file loaders. It is a
// no-op when no watched file exists. Reloads triggered by file changes are
// best-effort: failures are logged and published as events, and the
// previous snapshot stays live.
func (l *Live[T]) Watch(ctx context.Context) error {
	l.supMu.Lock()
	defer l.supMu.Unlock()

	if l.supervisor == nil {
		l.supervisor = NewSupervisor(loader.Paths(l.engine.Loaders), l.reload,
			SupervisorDebounce(l.debounce),
			SupervisorLogger(l.logger),
		)
	}
	return l.supervisor.Start(ctx)
}

// WatchState reports the supervisor state; Idle when never started
func (l *Live[T]) WatchState() State {
	l.supMu.Lock()
	defer l.supMu.Unlock()
	if l.supervisor == nil {
		return Idle
	}
	return l.supervisor.State()
}

// Close stops the supervisor if it is running
func (l *Live[T]) Close() error {
	l.supMu.Lock()
	defer l.supMu.Unlock()
	if l.supervisor != nil {
		l.supervisor.Stop()
	}
	return nil
}
