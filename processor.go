// FILE: lixenwraith/logroll/processor.go
package logroll

import (
	"os"
	"path/filepath"
	"time"
)

// run is the engine processing loop running in a separate goroutine.
// It is the only goroutine that touches the local queue and the rolling/queuing flags
// transitions, so a roll and an incoming write never interleave.
func (e *Engine) run() {
	defer close(e.exited)
	defer e.state.ProcessorExited.Store(true)
	defer func() {
		if e.release != nil {
			e.release()
		}
	}()

	timers := e.setupProcessingTimers()
	defer e.closeProcessingTimers(timers)

	// Initial heartbeat instead of waiting for the first tick
	if e.cfg.HeartbeatIntervalS > 0 {
		e.emitHeartbeat()
	}

	inbox := e.inbox
	for {
		// Inbox closed and drained: wait out any roll, then exit
		if inbox == nil && !e.state.Rolling.Load() {
			e.closeErr = e.shutdown()
			return
		}

		select {
		case rec, ok := <-inbox:
			if !ok {
				inbox = nil
				continue
			}
			e.processRecord(rec)

		case res := <-e.rollDone:
			e.finishRoll(res)

		case <-e.vanishCh:
			e.handleVanish()

		case <-timers.checkChan:
			e.checkRoll(false)

		case <-timers.heartbeatChan:
			e.emitHeartbeat()
		}
	}
}

// processRecord dispatches one inbox record
func (e *Engine) processRecord(rec record) {
	switch rec.kind {
	case recordWrite:
		e.handleWrite(rec.text)
		if e.cfg.CheckOnWrite {
			e.checkRoll(false)
		}
	case recordCheck:
		e.checkRoll(false)
	case recordRoll:
		e.checkRoll(true)
	case recordFlush:
		e.handleFlushRequest(rec.confirm)
	}
}

// handleWrite queues the text while a roll is in progress, otherwise delivers it
func (e *Engine) handleWrite(text string) {
	if e.state.Queuing.Load() {
		e.queue = append(e.queue, text)
		e.state.QueueLength.Store(int64(len(e.queue)))
		e.state.QueuedWrites.Add(1)
		return
	}
	e.deliver(text)
}

// deliver hands text to the pool stream for the live path
func (e *Engine) deliver(text string) {
	ok, err := e.pool.Write(e.path, text)
	if err != nil {
		e.state.FailedWrites.Add(1)
		e.emit(newErrorEvent(EventWriteFailed, e.path, nil, err))
		return
	}
	e.state.RecordsWritten.Add(1)
	e.state.BytesWritten.Add(uint64(len(text)))
	e.state.Backpressure.Store(!ok || len(e.inbox) == cap(e.inbox))
}

// checkRoll starts a roll when the size threshold is exceeded, or unconditionally when forced.
// No-op while a roll is in flight or when rotation cannot have any effect.
func (e *Engine) checkRoll(force bool) {
	if e.state.Rolling.Load() || !e.RotationEnabled() {
		return
	}
	if !force {
		if !e.retryAt.IsZero() && time.Now().Before(e.retryAt) {
			return
		}
		if e.currentSize() <= e.cfg.MaxSizeKB*sizeMultiplier {
			return
		}
	}
	e.startRoll()
}

// startRoll switches to queuing and runs the roll steps in their own goroutine
func (e *Engine) startRoll() {
	e.state.Rolling.Store(true)
	e.state.Queuing.Store(true)
	e.armWatchdog()

	s := e.pool.Current(e.path)
	go func() {
		e.rollDone <- e.rollTask(s)
	}()
}

// finishRoll resumes writing after a roll task reports back.
// Rolling is cleared on success and failure alike; the queue drains before the next
// inbox record is looked at.
func (e *Engine) finishRoll(res rollResult) {
	e.disarmWatchdog()
	e.state.Rolling.Store(false)
	// The startup measurement no longer describes the live file
	e.startSize.Store(0)

	switch {
	case res.err != nil:
		e.state.FailedRolls.Add(1)
		e.scheduleRetry()
		e.emit(newErrorEvent(EventRollFailed, e.path, res.stream, res.err))
		e.verifyLiveFile(res.stream)

	case res.needStream:
		if _, err := e.pool.Replace(e.path); err != nil {
			e.emit(newErrorEvent(EventStreamError, e.path, nil, err))
		}
		e.completeRoll(res)

	default:
		if res.stream != nil && !res.stream.Ended() {
			if err := res.stream.Uncork(); err != nil {
				e.emit(newErrorEvent(EventStreamError, e.path, res.stream, err))
			}
		}
		if res.kind != MoveNone {
			e.completeRoll(res)
		}
	}

	if res.err == nil {
		e.retryBackoff = 0
		e.retryAt = time.Time{}
	}

	e.drainQueue()
}

// scheduleRetry holds off size-triggered rolls after a failure so a persistent
// filesystem problem is not retried on every write
func (e *Engine) scheduleRetry() {
	switch {
	case e.retryBackoff == 0:
		e.retryBackoff = rollRetryMinBackoff
	case e.retryBackoff < rollRetryMaxBackoff:
		e.retryBackoff = min(e.retryBackoff*2, rollRetryMaxBackoff)
	}
	e.retryAt = time.Now().Add(e.retryBackoff)
}

func (e *Engine) completeRoll(res rollResult) {
	e.state.TotalRolls.Add(1)
	ev := newEvent(EventRollCompleted, e.path, e.pool.Current(e.path), "roll completed")
	ev.Fields = map[string]any{"kind": res.kind.String(), "destination": res.dst}
	e.emit(ev)
}

// verifyLiveFile makes sure the application still has an output target after a failed roll
func (e *Engine) verifyLiveFile(s *Stream) {
	if _, err := os.Stat(e.path); err != nil {
		e.recoverStream("live file missing after failed roll")
		return
	}
	if s != nil && !s.Ended() {
		if err := s.Uncork(); err != nil {
			e.emit(newErrorEvent(EventStreamError, e.path, s, err))
		}
	}
}

// drainQueue delivers queued writes in arrival order and ends queuing
func (e *Engine) drainQueue() {
	n := len(e.queue)
	for _, text := range e.queue {
		e.deliver(text)
	}
	e.queue = nil
	e.state.QueueLength.Store(0)
	e.state.Queuing.Store(false)

	if n > 0 {
		ev := newEvent(EventQueueFlushed, e.path, e.pool.Current(e.path), "writes queued during roll flushed")
		ev.Fields = map[string]any{"records": n}
		e.emit(ev)
	}

	// The drained backlog may itself exceed the threshold; pending flushes then wait
	// for that roll as well
	e.checkRoll(false)
	if e.state.Queuing.Load() {
		return
	}

	for _, confirm := range e.pendingFlushes {
		confirm <- e.syncStream()
	}
	e.pendingFlushes = nil
}

// handleVanish reacts to the pool reporting the live file gone.
// Ignored while rolling; the roll itself moves the file away.
func (e *Engine) handleVanish() {
	if e.state.Rolling.Load() {
		return
	}
	if _, err := os.Stat(e.path); err == nil {
		return
	}
	e.recoverStream("live file removed externally")
}

// recoverStream recreates the live file and replaces its stream
func (e *Engine) recoverStream(note string) {
	e.state.InRecovery.Store(true)
	defer e.state.InRecovery.Store(false)
	e.startSize.Store(0)

	e.emit(newEvent(EventFileVanished, e.path, e.pool.Current(e.path), note))

	if err := ensureDir(filepath.Dir(e.path), e.cfg.CreateDirectories); err != nil {
		e.emit(newErrorEvent(EventRecoveryFailed, e.path, nil, err))
		return
	}
	s, err := e.pool.Replace(e.path)
	if err != nil {
		e.emit(newErrorEvent(EventRecoveryFailed, e.path, nil, err))
		return
	}
	e.state.TotalRecoveries.Add(1)
	e.emit(newEvent(EventRecovered, e.path, s, "live file recreated"))
}

// handleFlushRequest syncs the stream, deferring until the queue drains during a roll
func (e *Engine) handleFlushRequest(confirm chan error) {
	if e.state.Queuing.Load() {
		e.pendingFlushes = append(e.pendingFlushes, confirm)
		return
	}
	confirm <- e.syncStream()
}

func (e *Engine) syncStream() error {
	s := e.pool.Current(e.path)
	if s == nil {
		return nil
	}
	return s.Sync()
}

// shutdown releases the engine's stream once the inbox is drained and no roll is running
func (e *Engine) shutdown() error {
	e.disarmWatchdog()

	var finalErr error
	if err := e.pool.setOwner(e.path, nil); err != nil {
		finalErr = combineErrors(finalErr, err)
	}
	if s := e.pool.Current(e.path); s != nil {
		if err := s.Sync(); err != nil {
			finalErr = combineErrors(finalErr, fmtErrorf("failed to sync '%s' during close: %w", e.path, err))
		}
	}
	if err := e.pool.Detach(e.path); err != nil {
		finalErr = combineErrors(finalErr, err)
	}
	return finalErr
}
