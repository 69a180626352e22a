// FILE: lixenwraith/logroll/compat/fiber.go
package compat

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// FiberAdapter writes Fiber v2 CommonLogger calls as lines into a rolled log file.
// Fiber's interfaces are matched structurally, so the module does not import Fiber.
type FiberAdapter struct {
	writer       LineWriter
	fatalHandler func(msg string) // Customizable fatal behavior
	panicHandler func(msg string) // Customizable panic behavior
	now          func() time.Time
}

// NewFiberAdapter creates a new Fiber-compatible logger adapter
func NewFiberAdapter(writer LineWriter, opts ...FiberOption) *FiberAdapter {
	adapter := &FiberAdapter{
		writer: writer,
		fatalHandler: func(msg string) {
			os.Exit(1)
		},
		panicHandler: func(msg string) {
			panic(msg)
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FiberOption allows customizing adapter behavior
type FiberOption func(*FiberAdapter)

// WithFiberFatalHandler sets a custom fatal handler
func WithFiberFatalHandler(handler func(string)) FiberOption {
	return func(a *FiberAdapter) {
		a.fatalHandler = handler
	}
}

// WithFiberPanicHandler sets a custom panic handler
func WithFiberPanicHandler(handler func(string)) FiberOption {
	return func(a *FiberAdapter) {
		a.panicHandler = handler
	}
}

// --- Logger ---

func (a *FiberAdapter) Trace(v ...any) { a.write(LevelDebug, fmt.Sprint(v...), "level", "trace") }
func (a *FiberAdapter) Debug(v ...any) { a.write(LevelDebug, fmt.Sprint(v...)) }
func (a *FiberAdapter) Info(v ...any)  { a.write(LevelInfo, fmt.Sprint(v...)) }
func (a *FiberAdapter) Warn(v ...any)  { a.write(LevelWarn, fmt.Sprint(v...)) }
func (a *FiberAdapter) Error(v ...any) { a.write(LevelError, fmt.Sprint(v...)) }

// Fatal logs at error level and triggers the fatal handler
func (a *FiberAdapter) Fatal(v ...any) { a.logFatal(fmt.Sprint(v...)) }

// Panic logs at error level and triggers the panic handler
func (a *FiberAdapter) Panic(v ...any) { a.logPanic(fmt.Sprint(v...)) }

// Write lets the adapter serve as an io.Writer for Fiber output redirection.
// Each call becomes one INFO line.
func (a *FiberAdapter) Write(p []byte) (int, error) {
	a.write(LevelInfo, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// --- FormatLogger ---

func (a *FiberAdapter) Tracef(format string, v ...any) {
	a.write(LevelDebug, fmt.Sprintf(format, v...), "level", "trace")
}
func (a *FiberAdapter) Debugf(format string, v ...any) { a.write(LevelDebug, fmt.Sprintf(format, v...)) }
func (a *FiberAdapter) Infof(format string, v ...any)  { a.write(LevelInfo, fmt.Sprintf(format, v...)) }
func (a *FiberAdapter) Warnf(format string, v ...any)  { a.write(LevelWarn, fmt.Sprintf(format, v...)) }
func (a *FiberAdapter) Errorf(format string, v ...any) { a.write(LevelError, fmt.Sprintf(format, v...)) }
func (a *FiberAdapter) Fatalf(format string, v ...any) { a.logFatal(fmt.Sprintf(format, v...)) }
func (a *FiberAdapter) Panicf(format string, v ...any) { a.logPanic(fmt.Sprintf(format, v...)) }

// --- WithLogger ---

func (a *FiberAdapter) Tracew(msg string, keysAndValues ...any) {
	a.write(LevelDebug, msg, append([]any{"level", "trace"}, keysAndValues...)...)
}
func (a *FiberAdapter) Debugw(msg string, keysAndValues ...any) {
	a.write(LevelDebug, msg, keysAndValues...)
}
func (a *FiberAdapter) Infow(msg string, keysAndValues ...any) {
	a.write(LevelInfo, msg, keysAndValues...)
}
func (a *FiberAdapter) Warnw(msg string, keysAndValues ...any) {
	a.write(LevelWarn, msg, keysAndValues...)
}
func (a *FiberAdapter) Errorw(msg string, keysAndValues ...any) {
	a.write(LevelError, msg, keysAndValues...)
}
func (a *FiberAdapter) Fatalw(msg string, keysAndValues ...any) {
	a.logFatal(msg, keysAndValues...)
}
func (a *FiberAdapter) Panicw(msg string, keysAndValues ...any) {
	a.logPanic(msg, keysAndValues...)
}

func (a *FiberAdapter) logFatal(msg string, fields ...any) {
	a.write(LevelError, msg, append([]any{"fatal", true}, fields...)...)

	// Ensure log is flushed before exit
	_ = a.writer.Flush(100 * time.Millisecond)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}

func (a *FiberAdapter) logPanic(msg string, fields ...any) {
	a.write(LevelError, msg, append([]any{"panic", true}, fields...)...)
	_ = a.writer.Flush(100 * time.Millisecond)

	if a.panicHandler != nil {
		a.panicHandler(msg)
	}
}

func (a *FiberAdapter) write(level, msg string, fields ...any) {
	a.writer.Write(formatLine(a.now(), level, "fiber", msg, fields...))
}
