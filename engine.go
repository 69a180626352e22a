// FILE: lixenwraith/logroll/engine.go
package logroll

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Engine owns rotation for one log file. Every write, roll check and flush request
// for the file passes through a single processing goroutine, so writes reach the file
// in call order even while a roll is in progress.
type Engine struct {
	cfg      *Config
	path     string
	key      string
	pool     *StreamPool
	sink     emitter
	release  func() // called once the processor exits
	rotation bool   // false when the configuration was rejected at Open

	startSize atomic.Int64 // live file size before any stream existed
	rollDir   string
	archDir   string
	name      string
	ext       string

	sendMu   sync.RWMutex // guards inbox sends against close
	inbox    chan record
	vanishCh chan struct{}
	rollDone chan rollResult
	exited   chan struct{}

	// Owned by the processor goroutine
	queue          []string
	pendingFlushes []chan error
	watchdog       *time.Timer
	retryBackoff   time.Duration // zero unless the last roll failed
	retryAt        time.Time     // no size-triggered roll before this

	state    engineState
	closeErr error // set by the processor before exiting
}

// newEngine builds an engine for an already validated path; start launches it
func newEngine(cfg *Config, path, key string, pool *StreamPool, sink emitter) *Engine {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultConfig.BufferSize
	}
	name, ext := splitName(path)
	e := &Engine{
		cfg:      cfg,
		path:     path,
		key:      key,
		pool:     pool,
		sink:     sink,
		rotation: true,
		rollDir:  cfg.rollDir(path),
		archDir:  cfg.archiveDir(path),
		name:     name,
		ext:      ext,
		inbox:    make(chan record, bufferSize),
		vanishCh: make(chan struct{}, 1),
		rollDone: make(chan rollResult, 1),
		exited:   make(chan struct{}),
	}
	e.state.StartTime.Store(time.Now())
	e.state.ProcessorExited.Store(true)
	if fi, err := os.Stat(path); err == nil {
		e.startSize.Store(fi.Size())
	}
	return e
}

// start launches the processor and registers for vanish notifications
func (e *Engine) start() {
	e.state.ProcessorExited.Store(false)
	if err := e.pool.setOwner(e.path, e.notifyVanished); err != nil {
		e.emit(newErrorEvent(EventWatcherError, e.path, nil, err))
	}
	go e.run()
}

// Path returns the live file path
func (e *Engine) Path() string {
	return e.path
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() *Config {
	return e.cfg.Clone()
}

// RotationEnabled reports whether this engine will ever roll its file
func (e *Engine) RotationEnabled() bool {
	return e.rotation && e.cfg.rotationActive()
}

// Write hands an already formatted line to the engine. The result is false when the
// write could not be accepted (engine closed) or the producer should slow down
// (inbox full or the stream reported it is over its high-water mark).
// Write only blocks when the inbox is full.
func (e *Engine) Write(text string) bool {
	if !e.send(record{kind: recordWrite, text: text}) {
		return false
	}
	return !e.state.Backpressure.Load()
}

// Closed reports whether Close has been called
func (e *Engine) Closed() bool {
	return e.state.Closed.Load()
}

// CheckRoll asks the engine to evaluate the size threshold. Cheap enough to call after
// every write; checks are processed in order with writes.
func (e *Engine) CheckRoll() {
	e.send(record{kind: recordCheck})
}

// Roll requests a roll regardless of size. Ignored while a roll is already running.
func (e *Engine) Roll() {
	e.send(record{kind: recordRoll})
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	st := Stats{
		Path:            e.path,
		RotationEnabled: e.RotationEnabled(),
		Rolling:         e.state.Rolling.Load(),
		Queuing:         e.state.Queuing.Load(),
		InRecovery:      e.state.InRecovery.Load(),
		Closed:          e.state.Closed.Load(),
		QueueLength:     e.state.QueueLength.Load(),
		Rolls:           e.state.TotalRolls.Load(),
		FailedRolls:     e.state.FailedRolls.Load(),
		Recoveries:      e.state.TotalRecoveries.Load(),
		RecordsWritten:  e.state.RecordsWritten.Load(),
		BytesWritten:    e.state.BytesWritten.Load(),
		FailedWrites:    e.state.FailedWrites.Load(),
		QueuedWrites:    e.state.QueuedWrites.Load(),
		DeletedFiles:    e.state.TotalDeletions.Load(),
		ArchivedFiles:   e.state.TotalArchives.Load(),
		EstimatedSize:   e.currentSize(),
	}
	if s := e.pool.Current(e.path); s != nil {
		st.StreamID = s.ID()
	}
	return st
}

// Stats is a point-in-time view of an engine
type Stats struct {
	Path            string
	StreamID        string
	RotationEnabled bool
	Rolling         bool
	Queuing         bool
	InRecovery      bool
	Closed          bool
	QueueLength     int64
	Rolls           uint64
	FailedRolls     uint64
	Recoveries      uint64
	RecordsWritten  uint64
	BytesWritten    uint64
	FailedWrites    uint64
	QueuedWrites    uint64
	DeletedFiles    uint64
	ArchivedFiles   uint64
	EstimatedSize   int64
}

// notifyVanished is the pool's callback when the live file disappears. It only posts
// a message; the processor decides what to do with it.
func (e *Engine) notifyVanished() {
	select {
	case e.vanishCh <- struct{}{}:
	default:
	}
}

// currentSize estimates the live file size without blocking on the processor.
// The estimate counts bytes still buffered in the stream; truncate mode re-stats the file.
func (e *Engine) currentSize() int64 {
	s := e.pool.Current(e.path)
	if e.cfg.TruncateMode {
		fi, err := os.Stat(e.path)
		if err != nil {
			return 0
		}
		if s != nil {
			return fi.Size() + s.BytesBuffered()
		}
		return fi.Size()
	}
	if s == nil {
		return e.startSize.Load()
	}
	return s.EstimatedSize()
}

// emit reports an event and mirrors warnings and errors to stderr when configured
func (e *Engine) emit(ev Event) {
	if ev.Code.Severity() >= SeverityWarn {
		e.internalLog("%s\n", ev)
	}
	e.sink.emit(ev)
}
