// FILE: lixenwraith/logroll/heartbeat.go
package logroll

import (
	"fmt"
	"runtime"
	"time"
)

// emitHeartbeat reports engine, disk and runtime statistics as one EventHeartbeat
func (e *Engine) emitHeartbeat() {
	sequence := e.state.HeartbeatSequence.Add(1)

	var uptimeHours float64
	if startTime, ok := e.state.StartTime.Load().(time.Time); ok && !startTime.IsZero() {
		uptimeHours = time.Since(startTime).Hours()
	}

	fields := map[string]any{
		"sequence":          sequence,
		"uptime_hours":      fmt.Sprintf("%.2f", uptimeHours),
		"records_written":   e.state.RecordsWritten.Load(),
		"bytes_written":     e.state.BytesWritten.Load(),
		"failed_writes":     e.state.FailedWrites.Load(),
		"queued_writes":     e.state.QueuedWrites.Load(),
		"rolls":             e.state.TotalRolls.Load(),
		"failed_rolls":      e.state.FailedRolls.Load(),
		"recoveries":        e.state.TotalRecoveries.Load(),
		"deleted_files":     e.state.TotalDeletions.Load(),
		"archived_files":    e.state.TotalArchives.Load(),
		"estimated_size_kb": fmt.Sprintf("%.2f", float64(e.currentSize())/sizeMultiplier),
		"num_goroutine":     runtime.NumGoroutine(),
	}

	// Add disk free space if we can get it
	freeSpace, err := getDiskFreeSpace(e.rollDir)
	if err == nil {
		fields["disk_free_mb"] = fmt.Sprintf("%.2f", float64(freeSpace)/(sizeMultiplier*sizeMultiplier))
	} else {
		e.internalLog("warning - heartbeat failed to get disk free space: %v\n", err)
	}

	ev := newEvent(EventHeartbeat, e.path, e.pool.Current(e.path), "heartbeat")
	ev.Fields = fields
	e.emit(ev)
}
