// FILE: lixenwraith/logroll/constant.go
package logroll

import (
	"time"
)

// Storage
const (
	// Size multiplier for KB
	sizeMultiplier = 1000
	// Zero-padded width of generation suffixes (_001)
	generationDigits = 3
	// Upper bound on retained generations, keeps names within generationDigits
	maxGenerationLimit = 999
	// Rolled file timestamps older than this are treated as unreliable
	implausibleAge = 365 * 24 * time.Hour
	// Archive name tie-break attempts before giving up
	maxNameAttempts = 1000
)

// Streams
const (
	// Default stream buffer high-water mark in bytes
	defaultHighWaterMark = 16 * 1024
	// Default interval for background stream flushes
	defaultStreamFlushInterval = 100 * time.Millisecond
	// Default permissions for newly created log files
	defaultFileMode = 0644
	// Default permissions for created roll/archive directories
	defaultDirMode = 0755
	// Default capacity of the registry event channel
	defaultEventBufferSize = 256
)

// Timers
const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
	// Rename retries on transient filesystem errors
	renameAttempts   = 3
	renameRetryDelay = 20 * time.Millisecond
	// Size-triggered rolls pause after a failure, doubling up to the maximum
	rollRetryMinBackoff = time.Second
	rollRetryMaxBackoff = time.Minute
)

// Compression codecs
const (
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)
