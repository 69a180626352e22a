// FILE: lixenwraith/logroll/utility.go
package logroll

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrClosed is returned by operations on a closed engine, pool, or registry
	ErrClosed = errors.New("logroll: closed")
	// ErrNoPath is returned when a configuration carries no target file path
	ErrNoPath = errors.New("logroll: path is required")
	// ErrPoolClosed is returned by a closed StreamPool; it matches ErrClosed
	ErrPoolClosed = fmt.Errorf("logroll: stream pool: %w", ErrClosed)
)

// fmtErrorf wrapper
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, "logroll: ") {
		format = "logroll: " + format
	}
	return fmt.Errorf(format, args...)
}

// combineErrors helper
func combineErrors(err1, err2 error) error {
	if err1 == nil {
		return err2
	}
	if err2 == nil {
		return err1
	}
	return fmt.Errorf("%v; %w", err1, err2)
}

// parseKeyValue splits a "key=value" string.
func parseKeyValue(arg string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(arg), "=", 2)
	if len(parts) != 2 {
		return "", "", fmtErrorf("invalid format in override string '%s', expected key=value", arg)
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if key == "" {
		return "", "", fmtErrorf("key cannot be empty in override string '%s'", arg)
	}
	return key, value, nil
}

// canonicalPath returns the cleaned absolute form of path
func canonicalPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrNoPath
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmtErrorf("failed to resolve path '%s': %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// normalizeKey maps a path to its registry key.
// Keys ignore case and surrounding whitespace so that "App.log" and " app.log" share a stream.
func normalizeKey(path string) (string, error) {
	abs, err := canonicalPath(path)
	if err != nil {
		return "", err
	}
	return strings.ToLower(abs), nil
}

// splitName returns the base name without extension and the extension (with dot)
func splitName(path string) (string, string) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}
