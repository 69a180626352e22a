// FILE: lixenwraith/logroll/compat/line.go
package compat

import (
	"fmt"
	"strings"
	"time"
)

// LineWriter is the engine surface the adapters need. *logroll.Engine implements it.
type LineWriter interface {
	Write(text string) bool
	Flush(timeout time.Duration) error
}

// Levels rendered by the adapters
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// timestampFormat is the line prefix layout
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// formatLine renders "<time> <LEVEL> <msg> key=value ... source=<source>\n".
// fields are key/value pairs; a trailing odd element is rendered under "extra".
func formatLine(ts time.Time, level, source, msg string, fields ...any) string {
	var sb strings.Builder
	sb.Grow(len(msg) + 64)
	sb.WriteString(ts.Format(timestampFormat))
	sb.WriteByte(' ')
	sb.WriteString(level)
	sb.WriteByte(' ')
	sb.WriteString(strings.TrimRight(msg, "\n"))

	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			writeField(&sb, "extra", fields[i])
			break
		}
		writeField(&sb, fmt.Sprint(fields[i]), fields[i+1])
	}
	if source != "" {
		writeField(&sb, "source", source)
	}
	sb.WriteByte('\n')
	return sb.String()
}

func writeField(sb *strings.Builder, key string, value any) {
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteByte('=')
	s := fmt.Sprint(value)
	if strings.ContainsAny(s, " \t\"=") {
		s = fmt.Sprintf("%q", s)
	}
	sb.WriteString(s)
}
