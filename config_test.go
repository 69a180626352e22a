// FILE: lixenwraith/logroll/config_test.go
package logroll

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "", cfg.Path)
	assert.True(t, cfg.RollEnabled)
	assert.Equal(t, int64(10000), cfg.MaxSizeKB)
	assert.Equal(t, int64(5), cfg.MaxGenerations)
	assert.False(t, cfg.ArchiveEnabled)
	assert.Equal(t, "2006-01-02_15-04-05.000", cfg.ArchiveTimestampFormat)
	assert.Equal(t, CompressionGzip, cfg.Compression)
	assert.True(t, cfg.CheckOnWrite)
	assert.True(t, cfg.CreateDirectories)
	assert.Equal(t, int64(1024), cfg.BufferSize)
	assert.NoError(t, cfg.Validate())

	// Each call returns an independent copy
	cfg.MaxSizeKB = 1
	assert.Equal(t, int64(10000), DefaultConfig().MaxSizeKB)
}

func TestConfigClone(t *testing.T) {
	cfg1 := DefaultConfig()
	cfg1.Path = "/custom/app.log"
	cfg1.MaxGenerations = 2

	cfg2 := cfg1.Clone()
	assert.Equal(t, cfg1.Path, cfg2.Path)

	cfg1.MaxGenerations = 9
	assert.Equal(t, int64(2), cfg2.MaxGenerations)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantError string
	}{
		{
			name:      "valid config",
			modify:    func(c *Config) {},
			wantError: "",
		},
		{
			name:      "zero size is valid",
			modify:    func(c *Config) { c.MaxSizeKB = 0 },
			wantError: "",
		},
		{
			name:      "negative size",
			modify:    func(c *Config) { c.MaxSizeKB = -1 },
			wantError: "max_size_kb cannot be negative",
		},
		{
			name:      "negative generations",
			modify:    func(c *Config) { c.MaxGenerations = -1 },
			wantError: "max_generations must be between",
		},
		{
			name:      "too many generations",
			modify:    func(c *Config) { c.MaxGenerations = 1000 },
			wantError: "max_generations must be between",
		},
		{
			name:      "invalid compression",
			modify:    func(c *Config) { c.Compression = "lz4" },
			wantError: "invalid compression",
		},
		{
			name:      "invalid timestamp layout",
			modify:    func(c *Config) { c.ArchiveTimestampFormat = "2006/01/02" },
			wantError: "invalid archive_timestamp_format",
		},
		{
			name:      "negative interval",
			modify:    func(c *Config) { c.CheckIntervalMs = -5 },
			wantError: "interval settings cannot be negative",
		},
		{
			name:      "zero buffer size",
			modify:    func(c *Config) { c.BufferSize = 0 },
			wantError: "buffer_size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
			}
		})
	}
}

func TestConfigDerived(t *testing.T) {
	live := filepath.Join("/var", "log", "app.log")

	cfg := DefaultConfig()
	assert.Equal(t, filepath.Dir(live), cfg.rollDir(live))
	assert.Equal(t, filepath.Dir(live), cfg.archiveDir(live))
	assert.Equal(t, CodecGzip, cfg.codec())
	assert.True(t, cfg.rotationActive())
	assert.Equal(t, time.Hour, cfg.watchdogTimeout())

	cfg.RollDirectory = "/rolls"
	assert.Equal(t, "/rolls", cfg.archiveDir(live))
	cfg.ArchiveDirectory = "/archive"
	assert.Equal(t, "/archive", cfg.archiveDir(live))

	cfg.Compression = CompressionZstd
	assert.Equal(t, CodecZstd, cfg.codec())

	cfg.WatchdogTimeoutS = 0
	assert.Equal(t, time.Hour, cfg.watchdogTimeout())

	cfg.MaxGenerations = 0
	assert.False(t, cfg.rotationActive())
	cfg.ArchiveEnabled = true
	assert.True(t, cfg.rotationActive())
	cfg.MaxSizeKB = 0
	assert.False(t, cfg.rotationActive())
}

func TestApplyOverride(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.ApplyOverride(
		"path=/var/log/app.log",
		"max_size_kb=2048",
		"max_generations=3",
		"archive_enabled=true",
		"compression=ZSTD",
		"truncate_mode=true",
		"heartbeat_interval_s=30",
	)
	require.NoError(t, err)
	assert.Equal(t, "/var/log/app.log", cfg.Path)
	assert.Equal(t, int64(2048), cfg.MaxSizeKB)
	assert.Equal(t, int64(3), cfg.MaxGenerations)
	assert.True(t, cfg.ArchiveEnabled)
	assert.Equal(t, CompressionZstd, cfg.Compression)
	assert.True(t, cfg.TruncateMode)
	assert.Equal(t, int64(30), cfg.HeartbeatIntervalS)

	t.Run("invalid values leave config untouched", func(t *testing.T) {
		before := *cfg
		err := cfg.ApplyOverride("max_size_kb=abc", "unknown_key=1", "roll_enabled=maybe")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "multiple configuration errors")
		assert.Contains(t, err.Error(), "unknown configuration key 'unknown_key'")
		assert.Equal(t, before, *cfg)
	})

	t.Run("result must validate", func(t *testing.T) {
		before := *cfg
		err := cfg.ApplyOverride("max_generations=5000")
		require.Error(t, err)
		assert.Equal(t, before, *cfg)
	})

	t.Run("malformed pair", func(t *testing.T) {
		err := cfg.ApplyOverride("max_size_kb")
		assert.Error(t, err)
	})
}

func TestNewConfigFromDefaults(t *testing.T) {
	cfg, err := NewConfigFromDefaults(map[string]any{
		"path":            "/tmp/app.log",
		"max_size_kb":     int64(100),
		"max_generations": 2,
		"check_on_write":  false,
		"buffer_size":     float64(64),
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/app.log", cfg.Path)
	assert.Equal(t, int64(100), cfg.MaxSizeKB)
	assert.Equal(t, int64(2), cfg.MaxGenerations)
	assert.False(t, cfg.CheckOnWrite)
	assert.Equal(t, int64(64), cfg.BufferSize)

	_, err = NewConfigFromDefaults(map[string]any{"nope": 1})
	assert.Error(t, err)

	_, err = NewConfigFromDefaults(map[string]any{"max_size_kb": "big"})
	assert.Error(t, err)

	_, err = NewConfigFromDefaults(map[string]any{"buffer_size": 1.5})
	assert.Error(t, err)

	_, err = NewConfigFromDefaults(map[string]any{"compression": "rar"})
	assert.Error(t, err)
}

func TestNewConfigFromFileMissing(t *testing.T) {
	cfg, err := NewConfigFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
