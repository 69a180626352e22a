// FILE: lixenwraith/logroll/record.go
package logroll

import (
	"fmt"
	"os"
	"strings"
)

type recordKind int

const (
	recordWrite recordKind = iota
	recordCheck
	recordRoll
	recordFlush
)

// record is one message on an engine inbox
type record struct {
	kind    recordKind
	text    string
	confirm chan error // recordFlush only
}

// send delivers a record to the processor. It tries a non-blocking send first and
// falls back to a blocking one when the inbox is full, flagging backpressure.
// Returns false if the engine is closed.
func (e *Engine) send(rec record) bool {
	e.sendMu.RLock()
	defer e.sendMu.RUnlock()

	if e.state.Closed.Load() {
		return false
	}

	select {
	case e.inbox <- rec:
		return true
	default:
	}

	if rec.kind == recordCheck {
		// Checks coalesce, the queued records ahead of it get checked anyway
		return true
	}

	if !e.state.Backpressure.Swap(true) {
		e.emit(newEvent(EventBackpressure, e.path, nil, "inbox full, producer blocked"))
	}
	e.inbox <- rec
	return true
}

// internalLog handles writing internal diagnostics to stderr, if enabled.
func (e *Engine) internalLog(format string, args ...any) {
	if !e.cfg.InternalErrorsToStderr {
		return
	}

	if !strings.HasPrefix(format, "logroll: ") {
		format = "logroll: " + format
	}

	fmt.Fprintf(os.Stderr, format, args...)
}
