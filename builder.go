// FILE: lixenwraith/logroll/builder.go
package logroll

// Builder provides a fluent API for building engine configurations.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg *Config
	err error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build validates and returns the configuration.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return b.cfg.Clone(), nil
}

// Open builds the configuration and opens its engine on the registry.
func (b *Builder) Open(r *Registry) (*Engine, error) {
	cfg, err := b.Build()
	if err != nil {
		return nil, err
	}
	return r.Open(cfg)
}

// Path sets the live log file.
func (b *Builder) Path(path string) *Builder {
	b.cfg.Path = path
	return b
}

// RollEnabled turns size based rolling on or off.
func (b *Builder) RollEnabled(enabled bool) *Builder {
	b.cfg.RollEnabled = enabled
	return b
}

// MaxSizeKB sets the roll threshold in KB.
func (b *Builder) MaxSizeKB(size int64) *Builder {
	b.cfg.MaxSizeKB = size
	return b
}

// MaxSizeMB sets the roll threshold in MB. Convenience.
func (b *Builder) MaxSizeMB(size int64) *Builder {
	b.cfg.MaxSizeKB = size * sizeMultiplier
	return b
}

// MaxGenerations sets how many numbered generations are kept.
func (b *Builder) MaxGenerations(n int64) *Builder {
	b.cfg.MaxGenerations = n
	return b
}

// RollDirectory sets where generation files live.
func (b *Builder) RollDirectory(dir string) *Builder {
	b.cfg.RollDirectory = dir
	return b
}

// Archive enables archiving into dir. An empty dir archives next to the generations.
func (b *Builder) Archive(dir string) *Builder {
	b.cfg.ArchiveEnabled = true
	b.cfg.ArchiveDirectory = dir
	return b
}

// ArchiveTimestampFormat sets the Go time layout embedded in archive names.
func (b *Builder) ArchiveTimestampFormat(layout string) *Builder {
	b.cfg.ArchiveTimestampFormat = layout
	return b
}

// Compression sets the archive codec, "gzip" or "zstd".
func (b *Builder) Compression(codec string) *Builder {
	if b.err != nil {
		return b
	}
	if codec != CompressionGzip && codec != CompressionZstd {
		b.err = fmtErrorf("invalid compression: '%s' (use %s or %s)", codec, CompressionGzip, CompressionZstd)
		return b
	}
	b.cfg.Compression = codec
	return b
}

// TruncateMode switches rolling to copy-then-truncate.
func (b *Builder) TruncateMode(enabled bool) *Builder {
	b.cfg.TruncateMode = enabled
	return b
}

// CheckOnWrite evaluates the roll threshold after every write.
func (b *Builder) CheckOnWrite(enabled bool) *Builder {
	b.cfg.CheckOnWrite = enabled
	return b
}

// CheckIntervalMs sets the periodic roll check interval.
func (b *Builder) CheckIntervalMs(interval int64) *Builder {
	b.cfg.CheckIntervalMs = interval
	return b
}

// CreateDirectories controls whether missing directories are created at open.
func (b *Builder) CreateDirectories(enabled bool) *Builder {
	b.cfg.CreateDirectories = enabled
	return b
}

// WatchdogTimeoutS sets how long a roll may run before a watchdog event.
func (b *Builder) WatchdogTimeoutS(timeout int64) *Builder {
	b.cfg.WatchdogTimeoutS = timeout
	return b
}

// BufferSize sets the engine inbox capacity.
func (b *Builder) BufferSize(size int64) *Builder {
	b.cfg.BufferSize = size
	return b
}

// HeartbeatIntervalS sets the heartbeat interval, 0 disables.
func (b *Builder) HeartbeatIntervalS(interval int64) *Builder {
	b.cfg.HeartbeatIntervalS = interval
	return b
}

// InternalErrorsToStderr mirrors warning and error events to stderr.
func (b *Builder) InternalErrorsToStderr(enabled bool) *Builder {
	b.cfg.InternalErrorsToStderr = enabled
	return b
}

// Example usage:
// engine, err := logroll.NewBuilder().
//
//	Path("/var/log/app/app.log").
//	MaxSizeMB(10).
//	MaxGenerations(5).
//	Archive("/var/log/app/archive").
//	Open(registry)
//
// if err == nil {
//
//	 defer engine.Close(time.Second)
//	 engine.Write("started\n")
//
// }
