// FILE: lixenwraith/logroll/compat/zap.go
package compat

import (
	"fmt"
	"time"

	"github.com/lixenwraith/logroll"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ zapcore.WriteSyncer = (*ZapSyncer)(nil)

// ZapSyncer lets a zap core write encoded entries into a rolled log file.
// Each Write call carries one encoded entry and is forwarded as one line.
type ZapSyncer struct {
	writer       LineWriter
	flushTimeout time.Duration
}

// NewZapSyncer wraps writer. Sync waits at most flushTimeout for buffered lines.
func NewZapSyncer(writer LineWriter, flushTimeout time.Duration) *ZapSyncer {
	if flushTimeout <= 0 {
		flushTimeout = time.Second
	}
	return &ZapSyncer{writer: writer, flushTimeout: flushTimeout}
}

// closedReporter is implemented by writers that can tell a refused line from backpressure.
// *logroll.Engine implements it.
type closedReporter interface {
	Closed() bool
}

// Write implements io.Writer. zap reuses p, so the text is copied before queuing.
// A false result from the writer is a backpressure hint and does not fail the write,
// unless the writer reports it is closed, which zap then sees as an error.
func (s *ZapSyncer) Write(p []byte) (int, error) {
	if s.writer.Write(string(p)) {
		return len(p), nil
	}
	if c, ok := s.writer.(closedReporter); ok && c.Closed() {
		return 0, fmt.Errorf("logroll/compat: zap entry dropped: %w", logroll.ErrClosed)
	}
	return len(p), nil
}

// Sync flushes pending lines to disk
func (s *ZapSyncer) Sync() error {
	return s.writer.Flush(s.flushTimeout)
}

// NewZapLogger builds a JSON zap logger writing through a ZapSyncer
func NewZapLogger(writer LineWriter, level zapcore.Level, fields ...zap.Field) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		NewZapSyncer(writer, time.Second),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core).With(fields...)
}
