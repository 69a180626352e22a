// FILE: lixenwraith/logroll/event.go
package logroll

import (
	"fmt"
	"time"
)

// EventCode identifies a diagnostic signal. 1xx codes are informational,
// 2xx warnings, 3xx errors.
type EventCode int

// Informational events
const (
	EventStreamCreated     EventCode = 100
	EventStreamReplaced    EventCode = 101
	EventFileRenamed       EventCode = 102
	EventFileTruncated     EventCode = 103
	EventFileArchived      EventCode = 104
	EventRollCompleted     EventCode = 105
	EventGenerationDeleted EventCode = 106
	EventHeartbeat         EventCode = 107
	EventRecovered         EventCode = 108
)

// Warning events
const (
	EventQueueFlushed  EventCode = 200
	EventFileVanished  EventCode = 201
	EventRollWatchdog  EventCode = 202
	EventConfigInvalid EventCode = 203
	EventBackpressure  EventCode = 204
)

// Error events
const (
	EventRollFailed     EventCode = 300
	EventMoveFailed     EventCode = 301
	EventWriteFailed    EventCode = 302
	EventStreamError    EventCode = 303
	EventRecoveryFailed EventCode = 304
	EventWatcherError   EventCode = 305
)

// Severity classes of event codes
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Severity derives the class from the code range
func (c EventCode) Severity() Severity {
	switch {
	case c >= 300:
		return SeverityError
	case c >= 200:
		return SeverityWarn
	default:
		return SeverityInfo
	}
}

var eventNames = map[EventCode]string{
	EventStreamCreated:     "stream_created",
	EventStreamReplaced:    "stream_replaced",
	EventFileRenamed:       "file_renamed",
	EventFileTruncated:     "file_truncated",
	EventFileArchived:      "file_archived",
	EventRollCompleted:     "roll_completed",
	EventGenerationDeleted: "generation_deleted",
	EventHeartbeat:         "heartbeat",
	EventRecovered:         "recovered",
	EventQueueFlushed:      "queue_flushed",
	EventFileVanished:      "file_vanished",
	EventRollWatchdog:      "roll_watchdog",
	EventConfigInvalid:     "config_invalid",
	EventBackpressure:      "backpressure",
	EventRollFailed:        "roll_failed",
	EventMoveFailed:        "move_failed",
	EventWriteFailed:       "write_failed",
	EventStreamError:       "stream_error",
	EventRecoveryFailed:    "recovery_failed",
	EventWatcherError:      "watcher_error",
}

func (c EventCode) String() string {
	if name, ok := eventNames[c]; ok {
		return name
	}
	return fmt.Sprintf("event_%d", int(c))
}

// Event is a structured diagnostic emitted by the pool and the engines.
// Exactly one of Note and Err is normally set.
type Event struct {
	Code     EventCode
	Time     time.Time
	Path     string
	StreamID string // empty when no stream is associated
	Note     string
	Err      error
	Fields   map[string]any
}

func (e Event) String() string {
	detail := e.Note
	if e.Err != nil {
		detail = e.Err.Error()
	}
	if e.StreamID != "" {
		return fmt.Sprintf("%s [%d %s] %s (stream %s): %s", e.Code.Severity(), int(e.Code), e.Code, e.Path, e.StreamID, detail)
	}
	return fmt.Sprintf("%s [%d %s] %s: %s", e.Code.Severity(), int(e.Code), e.Code, e.Path, detail)
}

// emitter is the sink the pool and engines report through
type emitter interface {
	emit(ev Event)
}

// emitFunc adapts a function to the emitter interface
type emitFunc func(Event)

func (f emitFunc) emit(ev Event) { f(ev) }

func newEvent(code EventCode, path string, s *Stream, note string) Event {
	ev := Event{Code: code, Time: time.Now(), Path: path, Note: note}
	if s != nil {
		ev.StreamID = s.ID()
	}
	return ev
}

func newErrorEvent(code EventCode, path string, s *Stream, err error) Event {
	ev := newEvent(code, path, s, "")
	ev.Err = err
	return ev
}
