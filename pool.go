// FILE: lixenwraith/logroll/pool.go
package logroll

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PoolOption customizes a StreamPool
type PoolOption func(*poolOptions)

type poolOptions struct {
	highWaterMark int
	flushInterval time.Duration
	fileMode      os.FileMode
}

func defaultPoolOptions() poolOptions {
	return poolOptions{
		highWaterMark: defaultHighWaterMark,
		flushInterval: defaultStreamFlushInterval,
		fileMode:      defaultFileMode,
	}
}

// WithHighWaterMark sets the per-stream buffer size above which writes report backpressure
func WithHighWaterMark(bytes int) PoolOption {
	return func(o *poolOptions) {
		if bytes > 0 {
			o.highWaterMark = bytes
		}
	}
}

// WithFlushInterval sets how often buffered stream bytes are pushed to disk
func WithFlushInterval(d time.Duration) PoolOption {
	return func(o *poolOptions) {
		if d > 0 {
			o.flushInterval = d
		}
	}
}

// WithFileMode sets the permissions of files the pool creates
func WithFileMode(mode os.FileMode) PoolOption {
	return func(o *poolOptions) {
		o.fileMode = mode
	}
}

// streamRecord binds a live stream to its registry key
type streamRecord struct {
	key    string
	path   string
	stream *Stream
}

// StreamPool is the single owner of open log file descriptors.
// It keeps at most one live stream per normalized path and watches each file's directory
// so that a file deleted or renamed from outside gets a fresh stream.
type StreamPool struct {
	opts poolOptions
	sink emitter

	mu       sync.Mutex
	records  map[string]*streamRecord
	owners   map[string]func() // key -> vanish notification of the owning engine
	dirRefs  map[string]int
	watcher  *fsnotify.Watcher
	closed   bool
	done     chan struct{}
	loopDone chan struct{}
}

// NewStreamPool creates a pool and starts its watcher/flush loop.
// onEvent may be nil. A watcher that cannot be created is reported and the pool runs
// without self-healing.
func NewStreamPool(onEvent func(Event), opts ...PoolOption) *StreamPool {
	o := defaultPoolOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	p := &StreamPool{
		opts:     o,
		sink:     emitFunc(onEvent),
		records:  make(map[string]*streamRecord),
		owners:   make(map[string]func()),
		dirRefs:  make(map[string]int),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		p.sink.emit(newErrorEvent(EventWatcherError, "", nil, fmtErrorf("failed to create watcher: %w", err)))
	} else {
		p.watcher = w
	}

	go p.run()
	return p
}

// GetOrCreate returns the live stream for path, opening one if needed
func (p *StreamPool) GetOrCreate(path string) (*Stream, error) {
	key, err := normalizeKey(path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if rec, ok := p.records[key]; ok && !rec.stream.Ended() {
		return rec.stream, nil
	}
	return p.createLocked(key, path, EventStreamCreated)
}

// Replace discards the current stream for path and opens a new one in its place
func (p *StreamPool) Replace(path string) (*Stream, error) {
	key, err := normalizeKey(path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if rec, ok := p.records[key]; ok {
		p.discardLocked(rec)
	}
	return p.createLocked(key, path, EventStreamReplaced)
}

// Write appends text to the stream for path. ok is the stream's backpressure signal.
func (p *StreamPool) Write(path, text string) (bool, error) {
	s, err := p.GetOrCreate(path)
	if err != nil {
		return false, err
	}
	ok, err := s.Write(text)
	if errors.Is(err, ErrClosed) {
		// Replaced between lookup and write; the new stream takes the text
		if s, err = p.GetOrCreate(path); err != nil {
			return false, err
		}
		return s.Write(text)
	}
	return ok, err
}

// Current returns the live stream for path or nil
func (p *StreamPool) Current(path string) *Stream {
	key, err := normalizeKey(path)
	if err != nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec, ok := p.records[key]; ok && !rec.stream.Ended() {
		return rec.stream
	}
	return nil
}

// Detach ends and forgets the stream for path
func (p *StreamPool) Detach(path string) error {
	key, err := normalizeKey(path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[key]
	if !ok {
		return nil
	}
	return p.discardLocked(rec)
}

// setOwner registers the function called when the watched file for path disappears.
// A nil fn removes the registration.
func (p *StreamPool) setOwner(path string, fn func()) error {
	key, err := normalizeKey(path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn == nil {
		delete(p.owners, key)
	} else {
		p.owners[key] = fn
	}
	return nil
}

// FlushAll pushes every stream's buffer to its descriptor
func (p *StreamPool) FlushAll() {
	for _, rec := range p.snapshot() {
		if err := rec.stream.Flush(); err != nil {
			p.sink.emit(newErrorEvent(EventStreamError, rec.path, rec.stream, err))
		}
	}
}

// Close ends every stream and stops the watcher
func (p *StreamPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	<-p.loopDone

	p.mu.Lock()
	defer p.mu.Unlock()

	var finalErr error
	for _, rec := range p.records {
		finalErr = combineErrors(finalErr, p.discardLocked(rec))
	}
	if p.watcher != nil {
		if err := p.watcher.Close(); err != nil {
			finalErr = combineErrors(finalErr, fmtErrorf("failed to close watcher: %w", err))
		}
	}
	return finalErr
}

// createLocked opens a stream and registers it, assuming mu is held.
// The file is created before the watch is set up.
func (p *StreamPool) createLocked(key, path string, code EventCode) (*Stream, error) {
	abs, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}
	s, err := openStream(abs, p.opts.highWaterMark, p.opts.fileMode)
	if err != nil {
		return nil, err
	}
	p.records[key] = &streamRecord{key: key, path: abs, stream: s}
	p.watchDirLocked(filepath.Dir(abs))
	p.sink.emit(newEvent(code, abs, s, "stream opened"))
	return s, nil
}

// discardLocked releases the watch, then ends the stream, assuming mu is held
func (p *StreamPool) discardLocked(rec *streamRecord) error {
	delete(p.records, rec.key)
	p.unwatchDirLocked(filepath.Dir(rec.path))
	if err := rec.stream.End(); err != nil {
		p.sink.emit(newErrorEvent(EventStreamError, rec.path, rec.stream, err))
		return err
	}
	return nil
}

func (p *StreamPool) watchDirLocked(dir string) {
	if p.watcher == nil {
		return
	}
	if p.dirRefs[dir] == 0 {
		if err := p.watcher.Add(dir); err != nil {
			p.sink.emit(newErrorEvent(EventWatcherError, dir, nil, fmtErrorf("failed to watch '%s': %w", dir, err)))
			return
		}
	}
	p.dirRefs[dir]++
}

func (p *StreamPool) unwatchDirLocked(dir string) {
	if p.watcher == nil || p.dirRefs[dir] == 0 {
		return
	}
	p.dirRefs[dir]--
	if p.dirRefs[dir] == 0 {
		delete(p.dirRefs, dir)
		// The directory itself may be gone already
		_ = p.watcher.Remove(dir)
	}
}

func (p *StreamPool) snapshot() []*streamRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	recs := make([]*streamRecord, 0, len(p.records))
	for _, rec := range p.records {
		recs = append(recs, rec)
	}
	return recs
}

// run is the pool loop: watcher events and periodic flushes
func (p *StreamPool) run() {
	defer close(p.loopDone)

	flushTicker := time.NewTicker(p.opts.flushInterval)
	defer flushTicker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if p.watcher != nil {
		events = p.watcher.Events
		errs = p.watcher.Errors
	}

	for {
		select {
		case <-p.done:
			return

		case <-flushTicker.C:
			p.FlushAll()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			p.handleWatchEvent(ev)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.sink.emit(newErrorEvent(EventWatcherError, "", nil, err))
		}
	}
}

// handleWatchEvent reacts to a watched file being removed or renamed away.
// The owning engine is notified when one is registered, otherwise the pool replaces the
// stream itself.
func (p *StreamPool) handleWatchEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	key, err := normalizeKey(ev.Name)
	if err != nil {
		return
	}

	p.mu.Lock()
	rec, tracked := p.records[key]
	owner := p.owners[key]
	p.mu.Unlock()

	if !tracked {
		return
	}
	if _, err := os.Stat(rec.path); err == nil {
		return
	}

	if owner != nil {
		owner()
		return
	}
	p.sink.emit(newEvent(EventFileVanished, rec.path, rec.stream, "file removed externally, replacing stream"))
	if _, err := p.Replace(rec.path); err != nil {
		p.sink.emit(newErrorEvent(EventRecoveryFailed, rec.path, nil, err))
	}
}
