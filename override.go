// FILE: lixenwraith/logroll/override.go
package logroll

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyOverride applies string key-value overrides to the configuration.
// Each override should be in the format "key=value". The configuration is left untouched
// unless every override parses and the result validates.
//
// Example:
//
//	cfg := logroll.DefaultConfig()
//	err := cfg.ApplyOverride(
//	    "path=/var/log/app/app.log",
//	    "max_size_kb=2048",
//	    "archive_enabled=true",
//	)
func (c *Config) ApplyOverride(overrides ...string) error {
	cfg := c.Clone()

	var errors []error

	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errors = append(errors, err)
			continue
		}

		if err := applyConfigField(cfg, key, value); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return combineConfigErrors(errors)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	*c = *cfg
	return nil
}

// combineConfigErrors combines multiple configuration errors into a single error.
func combineConfigErrors(errors []error) error {
	if len(errors) == 0 {
		return nil
	}
	if len(errors) == 1 {
		return errors[0]
	}

	var sb strings.Builder
	sb.WriteString("logroll: multiple configuration errors:")
	for i, err := range errors {
		errMsg := strings.TrimPrefix(err.Error(), "logroll: ")
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, errMsg))
	}
	return fmt.Errorf("%s", sb.String())
}

// applyConfigField applies a single key-value override to a Config.
func applyConfigField(cfg *Config, key, value string) error {
	switch key {
	// Target
	case "path":
		cfg.Path = value

	// Rotation
	case "roll_enabled":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmtErrorf("invalid boolean value for roll_enabled '%s': %w", value, err)
		}
		cfg.RollEnabled = boolVal
	case "max_size_kb":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmtErrorf("invalid integer value for max_size_kb '%s': %w", value, err)
		}
		cfg.MaxSizeKB = intVal
	case "max_generations":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmtErrorf("invalid integer value for max_generations '%s': %w", value, err)
		}
		cfg.MaxGenerations = intVal
	case "roll_directory":
		cfg.RollDirectory = value
	case "truncate_mode":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmtErrorf("invalid boolean value for truncate_mode '%s': %w", value, err)
		}
		cfg.TruncateMode = boolVal

	// Archive
	case "archive_enabled":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmtErrorf("invalid boolean value for archive_enabled '%s': %w", value, err)
		}
		cfg.ArchiveEnabled = boolVal
	case "archive_directory":
		cfg.ArchiveDirectory = value
	case "archive_timestamp_format":
		cfg.ArchiveTimestampFormat = value
	case "compression":
		cfg.Compression = strings.ToLower(value)

	// Checks
	case "check_on_write":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmtErrorf("invalid boolean value for check_on_write '%s': %w", value, err)
		}
		cfg.CheckOnWrite = boolVal
	case "check_interval_ms":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmtErrorf("invalid integer value for check_interval_ms '%s': %w", value, err)
		}
		cfg.CheckIntervalMs = intVal
	case "create_directories":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmtErrorf("invalid boolean value for create_directories '%s': %w", value, err)
		}
		cfg.CreateDirectories = boolVal
	case "watchdog_timeout_s":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmtErrorf("invalid integer value for watchdog_timeout_s '%s': %w", value, err)
		}
		cfg.WatchdogTimeoutS = intVal

	// Engine
	case "buffer_size":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmtErrorf("invalid integer value for buffer_size '%s': %w", value, err)
		}
		cfg.BufferSize = intVal
	case "heartbeat_interval_s":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmtErrorf("invalid integer value for heartbeat_interval_s '%s': %w", value, err)
		}
		cfg.HeartbeatIntervalS = intVal

	// Internal error handling
	case "internal_errors_to_stderr":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmtErrorf("invalid boolean value for internal_errors_to_stderr '%s': %w", value, err)
		}
		cfg.InternalErrorsToStderr = boolVal

	default:
		return fmtErrorf("unknown configuration key '%s'", key)
	}

	return nil
}
