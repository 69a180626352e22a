// FILE: lixenwraith/logroll/compat/structured_gnet.go
package compat

import (
	"fmt"
	"regexp"
	"strings"
)

// keyValuePattern detects structured patterns like "key=%v" or "key: %v"
var keyValuePattern = regexp.MustCompile(`(\w+)\s*[:=]\s*%[vsdqxXeEfFgGpbcU]`)

// parseFormat attempts to extract structured fields from printf-style format strings.
// It returns the free-text message and key/value pairs.
func parseFormat(format string, args []any) (string, []any) {
	matches := keyValuePattern.FindAllStringSubmatchIndex(format, -1)
	if len(matches) == 0 || len(matches) > len(args) {
		return fmt.Sprintf(format, args...), nil
	}

	var msg string
	fields := make([]any, 0, len(matches)*2)
	lastEnd := 0
	argIndex := 0

	for _, match := range matches {
		// Text before the first match becomes the message
		if match[0] > lastEnd && msg == "" {
			msg = strings.TrimSpace(format[lastEnd:match[0]])
		}

		key := format[match[2]:match[3]]
		if argIndex < len(args) {
			fields = append(fields, key, args[argIndex])
			argIndex++
		}

		lastEnd = match[1]
	}

	// Remaining format text and args extend the message
	if lastEnd < len(format) {
		remaining := strings.TrimSpace(fmt.Sprintf(format[lastEnd:], args[argIndex:]...))
		if remaining != "" {
			if msg == "" {
				msg = remaining
			} else {
				msg = msg + " " + remaining
			}
		}
	}

	return msg, fields
}

// StructuredGnetAdapter provides enhanced structured logging for gnet
type StructuredGnetAdapter struct {
	*GnetAdapter
	extractFields bool
}

// NewStructuredGnetAdapter creates a gnet adapter with structured field extraction
func NewStructuredGnetAdapter(writer LineWriter, opts ...GnetOption) *StructuredGnetAdapter {
	return &StructuredGnetAdapter{
		GnetAdapter:   NewGnetAdapter(writer, opts...),
		extractFields: true,
	}
}

// Debugf logs with structured field extraction
func (a *StructuredGnetAdapter) Debugf(format string, args ...any) {
	a.writeStructured(LevelDebug, format, args)
}

// Infof logs with structured field extraction
func (a *StructuredGnetAdapter) Infof(format string, args ...any) {
	a.writeStructured(LevelInfo, format, args)
}

// Warnf logs with structured field extraction
func (a *StructuredGnetAdapter) Warnf(format string, args ...any) {
	a.writeStructured(LevelWarn, format, args)
}

// Errorf logs with structured field extraction
func (a *StructuredGnetAdapter) Errorf(format string, args ...any) {
	a.writeStructured(LevelError, format, args)
}

func (a *StructuredGnetAdapter) writeStructured(level, format string, args []any) {
	if !a.extractFields {
		a.write(level, fmt.Sprintf(format, args...))
		return
	}
	msg, fields := parseFormat(format, args)
	a.write(level, msg, fields...)
}
