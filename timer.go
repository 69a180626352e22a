// FILE: lixenwraith/logroll/timer.go
package logroll

import "time"

// TimerSet holds the tickers used by the engine processor
type TimerSet struct {
	checkTicker     *time.Ticker
	heartbeatTicker *time.Ticker
	checkChan       <-chan time.Time
	heartbeatChan   <-chan time.Time
}

// setupProcessingTimers creates the periodic roll check and heartbeat tickers.
// A disabled timer leaves a nil channel, which never fires in select.
func (e *Engine) setupProcessingTimers() *TimerSet {
	timers := &TimerSet{}

	timers.checkChan = e.setupCheckTimer(timers)
	timers.heartbeatChan = e.setupHeartbeatTimer(timers)

	return timers
}

// closeProcessingTimers stops all active timers
func (e *Engine) closeProcessingTimers(timers *TimerSet) {
	if timers.checkTicker != nil {
		timers.checkTicker.Stop()
	}
	if timers.heartbeatTicker != nil {
		timers.heartbeatTicker.Stop()
	}
}

// setupCheckTimer configures the periodic roll check if rotation can happen
func (e *Engine) setupCheckTimer(timers *TimerSet) <-chan time.Time {
	if !e.RotationEnabled() || e.cfg.CheckIntervalMs <= 0 {
		return nil
	}
	interval := time.Duration(e.cfg.CheckIntervalMs) * time.Millisecond
	if interval < minWaitTime {
		interval = minWaitTime
	}
	timers.checkTicker = time.NewTicker(interval)
	return timers.checkTicker.C
}

// setupHeartbeatTimer configures the heartbeat timer if enabled
func (e *Engine) setupHeartbeatTimer(timers *TimerSet) <-chan time.Time {
	if e.cfg.HeartbeatIntervalS <= 0 {
		return nil
	}
	timers.heartbeatTicker = time.NewTicker(time.Duration(e.cfg.HeartbeatIntervalS) * time.Second)
	return timers.heartbeatTicker.C
}

// armWatchdog starts the roll watchdog. It only reports; the roll is never cancelled.
func (e *Engine) armWatchdog() {
	timeout := e.cfg.watchdogTimeout()
	started := time.Now()
	e.watchdog = time.AfterFunc(timeout, func() {
		ev := newEvent(EventRollWatchdog, e.path, nil, "roll has not completed")
		ev.Fields = map[string]any{
			"timeout": timeout.String(),
			"started": started,
			"elapsed": time.Since(started).String(),
		}
		e.emit(ev)
	})
}

// disarmWatchdog clears the roll watchdog
func (e *Engine) disarmWatchdog() {
	if e.watchdog != nil {
		e.watchdog.Stop()
		e.watchdog = nil
	}
}
