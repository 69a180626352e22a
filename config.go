// FILE: lixenwraith/logroll/config.go
package logroll

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"time"

	"github.com/lixenwraith/config"
)

// Config holds the settings of one rolled log file
type Config struct {
	// Target
	Path string `toml:"path"` // Live log file

	// Rotation
	RollEnabled    bool   `toml:"roll_enabled"`
	MaxSizeKB      int64  `toml:"max_size_kb"`     // Size threshold, 0 disables size rolling
	MaxGenerations int64  `toml:"max_generations"` // Numbered generations kept (_001 newest)
	RollDirectory  string `toml:"roll_directory"`  // Empty means the directory of Path
	TruncateMode   bool   `toml:"truncate_mode"`   // Copy then truncate instead of rename

	// Archive
	ArchiveEnabled         bool   `toml:"archive_enabled"`
	ArchiveDirectory       string `toml:"archive_directory"`        // Empty means the roll directory
	ArchiveTimestampFormat string `toml:"archive_timestamp_format"` // Go time layout
	Compression            string `toml:"compression"`              // "gzip" or "zstd"

	// Checks
	CheckOnWrite      bool  `toml:"check_on_write"`
	CheckIntervalMs   int64 `toml:"check_interval_ms"` // Periodic roll check, 0 disables
	CreateDirectories bool  `toml:"create_directories"`
	WatchdogTimeoutS  int64 `toml:"watchdog_timeout_s"`

	// Engine
	BufferSize         int64 `toml:"buffer_size"`          // Inbox channel capacity
	HeartbeatIntervalS int64 `toml:"heartbeat_interval_s"` // 0 disables heartbeat events

	// Internal error handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"` // Mirror warnings and errors to stderr
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	Path: "",

	RollEnabled:    true,
	MaxSizeKB:      10000,
	MaxGenerations: 5,
	RollDirectory:  "",
	TruncateMode:   false,

	ArchiveEnabled:         false,
	ArchiveDirectory:       "",
	ArchiveTimestampFormat: "2006-01-02_15-04-05.000",
	Compression:            CompressionGzip,

	CheckOnWrite:      true,
	CheckIntervalMs:   1000,
	CreateDirectories: true,
	WatchdogTimeoutS:  3600,

	BufferSize:         1024,
	HeartbeatIntervalS: 0,

	InternalErrorsToStderr: false,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// NewConfigFromFile loads configuration from a TOML file and returns a validated Config.
// Keys live under the "logroll." prefix; a missing file yields the defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()

	if err := loader.RegisterStruct("logroll.", *cfg); err != nil {
		return nil, fmt.Errorf("failed to register config struct: %w", err)
	}

	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, "logroll.", cfg); err != nil {
		return nil, fmt.Errorf("failed to extract config values: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewConfigFromDefaults creates a Config with default values and applies overrides
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmt.Errorf("failed to apply overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// extractConfig extracts values from lixenwraith/config into our Config struct
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue // Use default value
		}

		if err := setFieldValue(fieldValue, val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// applyOverrides applies a map of overrides to the Config struct
func applyOverrides(cfg *Config, overrides map[string]any) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	fieldMap := make(map[string]reflect.Value)
	for i := 0; i < t.NumField(); i++ {
		if tomlTag := t.Field(i).Tag.Get("toml"); tomlTag != "" {
			fieldMap[tomlTag] = v.Field(i)
		}
	}

	for key, value := range overrides {
		fieldValue, exists := fieldMap[key]
		if !exists {
			return fmt.Errorf("unknown config key: %s", key)
		}

		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		case float64:
			// TOML decoders may surface integers as float64
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got %v", v)
			}
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// Validate checks rotation parameters. The target path is checked separately by Registry.Open.
func (c *Config) Validate() error {
	if c.MaxSizeKB < 0 {
		return fmtErrorf("max_size_kb cannot be negative: %d", c.MaxSizeKB)
	}

	if c.MaxGenerations < 0 || c.MaxGenerations > maxGenerationLimit {
		return fmtErrorf("max_generations must be between 0 and %d: %d", maxGenerationLimit, c.MaxGenerations)
	}

	if c.Compression != CompressionGzip && c.Compression != CompressionZstd {
		return fmtErrorf("invalid compression: '%s' (use %s or %s)", c.Compression, CompressionGzip, CompressionZstd)
	}

	if !validTimestampLayout(c.ArchiveTimestampFormat) {
		return fmtErrorf("invalid archive_timestamp_format: '%s'", c.ArchiveTimestampFormat)
	}

	if c.CheckIntervalMs < 0 || c.WatchdogTimeoutS < 0 || c.HeartbeatIntervalS < 0 {
		return fmtErrorf("interval settings cannot be negative")
	}

	if c.BufferSize <= 0 {
		return fmtErrorf("buffer_size must be positive: %d", c.BufferSize)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	return &copiedConfig
}

// rollDir resolves the directory that holds the generation train
func (c *Config) rollDir(livePath string) string {
	if c.RollDirectory != "" {
		return c.RollDirectory
	}
	return filepath.Dir(livePath)
}

// archiveDir resolves the directory that receives archives
func (c *Config) archiveDir(livePath string) string {
	if c.ArchiveDirectory != "" {
		return c.ArchiveDirectory
	}
	return c.rollDir(livePath)
}

// codec maps the compression setting to a Codec
func (c *Config) codec() Codec {
	if c.Compression == CompressionZstd {
		return CodecZstd
	}
	return CodecGzip
}

// rotationActive reports whether rolling can have any effect
func (c *Config) rotationActive() bool {
	return c.RollEnabled && c.MaxSizeKB > 0 && (c.MaxGenerations > 0 || c.ArchiveEnabled)
}

func (c *Config) watchdogTimeout() time.Duration {
	if c.WatchdogTimeoutS <= 0 {
		return time.Duration(defaultConfig.WatchdogTimeoutS) * time.Second
	}
	return time.Duration(c.WatchdogTimeoutS) * time.Second
}
