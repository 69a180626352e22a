// FILE: lixenwraith/logroll/state.go
package logroll

import (
	"sync/atomic"
	"time"
)

// engineState encapsulates the runtime state of an engine.
// Flags are written by the processor and read from any goroutine.
type engineState struct {
	Rolling         atomic.Bool // a roll task is in flight
	Queuing         atomic.Bool // writes go to the local queue
	InRecovery      atomic.Bool // recreating a vanished live file
	Closed          atomic.Bool
	Backpressure    atomic.Bool
	ProcessorExited atomic.Bool

	QueueLength atomic.Int64

	// Heartbeat statistics
	HeartbeatSequence atomic.Uint64
	StartTime         atomic.Value // stores time.Time for uptime calculation
	RecordsWritten    atomic.Uint64
	BytesWritten      atomic.Uint64
	FailedWrites      atomic.Uint64
	QueuedWrites      atomic.Uint64
	TotalRolls        atomic.Uint64
	FailedRolls       atomic.Uint64
	TotalRecoveries   atomic.Uint64
	TotalDeletions    atomic.Uint64 // generations deleted off the top of the train
	TotalArchives     atomic.Uint64
}

// Close stops accepting writes, lets the processor drain its inbox, waits for an
// in-flight roll to finish, flushes the queue, and releases the stream.
// If no timeout is provided, waits without limit.
func (e *Engine) Close(timeout ...time.Duration) error {
	if !e.state.Closed.CompareAndSwap(false, true) {
		return nil
	}

	e.sendMu.Lock()
	close(e.inbox)
	e.sendMu.Unlock()

	if len(timeout) == 0 || timeout[0] <= 0 {
		<-e.exited
		return e.closeErr
	}

	select {
	case <-e.exited:
		return e.closeErr
	case <-time.After(timeout[0]):
		return fmtErrorf("engine for '%s' did not exit within timeout (%v)", e.path, timeout[0])
	}
}

// Flush waits until every record written before the call has reached the file
// descriptor and the file is synced, or until timeout.
func (e *Engine) Flush(timeout time.Duration) error {
	if e.state.Closed.Load() {
		return ErrClosed
	}

	confirmChan := make(chan error, 1)
	if !e.send(record{kind: recordFlush, confirm: confirmChan}) {
		return ErrClosed
	}

	select {
	case err := <-confirmChan:
		return err
	case <-time.After(timeout):
		return fmtErrorf("timeout waiting for flush confirmation (%v)", timeout)
	}
}

// Done is closed once the processor has exited
func (e *Engine) Done() <-chan struct{} {
	return e.exited
}
