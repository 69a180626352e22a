// FILE: lixenwraith/logroll/registry.go
package logroll

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Option customizes a Registry
type Option func(*registryOptions)

type registryOptions struct {
	eventBuffer int
	poolOpts    []PoolOption
}

// WithEventBuffer sets the capacity of the event channel. Events that do not fit are
// dropped and counted.
func WithEventBuffer(size int) Option {
	return func(o *registryOptions) {
		if size >= 0 {
			o.eventBuffer = size
		}
	}
}

// WithPoolOptions passes options to the registry's StreamPool
func WithPoolOptions(opts ...PoolOption) Option {
	return func(o *registryOptions) {
		o.poolOpts = append(o.poolOpts, opts...)
	}
}

// Registry is the composition root: it owns the StreamPool, at most one Engine per
// normalized path, and the event channel every component reports through.
type Registry struct {
	pool *StreamPool

	mu      sync.Mutex
	engines map[string]*Engine
	closed  atomic.Bool

	eventsMu     sync.RWMutex
	events       chan Event
	eventsClosed bool
	dropped      atomic.Uint64
}

// NewRegistry creates a registry with its own StreamPool
func NewRegistry(opts ...Option) *Registry {
	o := registryOptions{eventBuffer: defaultEventBufferSize}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		engines: make(map[string]*Engine),
		events:  make(chan Event, o.eventBuffer),
	}
	r.pool = NewStreamPool(r.emit, o.poolOpts...)
	return r
}

// Open returns the engine for cfg.Path, starting one if none is running.
// An existing engine is returned as is, whatever cfg says.
// A missing path fails with ErrNoPath. Invalid rotation parameters do not fail Open:
// an EventConfigInvalid is emitted and the engine writes without rotating.
func (r *Registry) Open(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmtErrorf("configuration cannot be nil")
	}
	if r.closed.Load() {
		return nil, ErrClosed
	}

	path, err := canonicalPath(cfg.Path)
	if err != nil {
		return nil, err
	}
	key, err := normalizeKey(path)
	if err != nil {
		return nil, err
	}

	// A closing engine still owns the stream; wait for it to let go
	for {
		r.mu.Lock()
		existing, ok := r.engines[key]
		if !ok {
			break
		}
		if !existing.state.Closed.Load() {
			r.mu.Unlock()
			return existing, nil
		}
		r.mu.Unlock()
		<-existing.Done()
	}
	defer r.mu.Unlock()

	// Close may have started since the first check; it snapshots engines under mu
	if r.closed.Load() {
		return nil, ErrClosed
	}

	cfg = cfg.Clone()
	cfg.Path = path

	// The live file directory is needed for writing at all
	if err := ensureDir(filepath.Dir(path), cfg.CreateDirectories); err != nil {
		return nil, err
	}

	e := newEngine(cfg, path, key, r.pool, emitFunc(r.emit))
	if err := r.checkRotation(cfg, path); err != nil {
		e.rotation = false
		e.emit(newErrorEvent(EventConfigInvalid, path, nil, err))
	}
	e.release = func() { r.remove(key, e) }

	r.engines[key] = e
	e.start()
	return e, nil
}

// checkRotation validates rotation parameters and prepares roll/archive directories
func (r *Registry) checkRotation(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.rotationActive() {
		return nil
	}
	if cfg.MaxGenerations > 0 {
		if err := ensureDir(cfg.rollDir(path), cfg.CreateDirectories); err != nil {
			return err
		}
	}
	if cfg.ArchiveEnabled {
		if err := ensureDir(cfg.archiveDir(path), cfg.CreateDirectories); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the running engine for path
func (r *Registry) Lookup(path string) (*Engine, bool) {
	key, err := normalizeKey(path)
	if err != nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[key]
	if !ok || e.state.Closed.Load() {
		return nil, false
	}
	return e, true
}

// Engines returns the running engines
func (r *Registry) Engines() []*Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	engines := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		engines = append(engines, e)
	}
	return engines
}

// Pool returns the registry's StreamPool
func (r *Registry) Pool() *StreamPool {
	return r.pool
}

// Events returns the diagnostic event channel. It is closed by Close.
func (r *Registry) Events() <-chan Event {
	return r.events
}

// DroppedEvents returns how many events did not fit in the channel
func (r *Registry) DroppedEvents() uint64 {
	return r.dropped.Load()
}

// Close closes all engines concurrently, then the pool, then the event channel.
// If no timeout is provided, each engine close waits without limit.
func (r *Registry) Close(timeout ...time.Duration) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	var g errgroup.Group
	for _, e := range r.Engines() {
		g.Go(func() error {
			return e.Close(timeout...)
		})
	}
	finalErr := g.Wait()

	if err := r.pool.Close(); err != nil {
		finalErr = combineErrors(finalErr, err)
	}

	r.eventsMu.Lock()
	r.eventsClosed = true
	close(r.events)
	r.eventsMu.Unlock()

	return finalErr
}

// remove forgets an engine after its processor exited
func (r *Registry) remove(key string, e *Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engines[key] == e {
		delete(r.engines, key)
	}
}

// emit delivers an event without blocking
func (r *Registry) emit(ev Event) {
	r.eventsMu.RLock()
	defer r.eventsMu.RUnlock()
	if r.eventsClosed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.events <- ev:
	default:
		r.dropped.Add(1)
	}
}

// IsClosed reports whether err comes from a closed engine, pool, or registry
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
