package xsink

import (
	"sync"
	"time"
)

// TriggerConfig describes the flush conditions a buffering sink evaluates.
// Every condition is optional; a zero field means that condition never
// activates. Conditions compose: any one firing drains the full buffer, and
// several eligible conditions on the same write still cause a single flush.
type TriggerConfig struct {
	// Enabled gates all automatic flushing. When false, records accumulate
	// until Close drains them.
	Enabled bool

	// Interval flushes the buffer on a fixed period when it is non-empty.
	// The countdown restarts after every flush, whatever triggered it.
	Interval time.Duration

	// OnSize flushes as soon as the buffer holds this many records,
	// before the triggering write returns.
	OnSize int

	// OnLevel flushes immediately when a record at or above this severity
	// arrives; the triggering record is part of that flush.
	OnLevel Level

	// OnIdle flushes after this much time passes without a write. Each
	// write cancels and re-schedules the pending idle timer.
	OnIdle time.Duration
}

// Triggers returns a TriggerConfig with the engine enabled and every
// condition off.
func Triggers() TriggerConfig { return TriggerConfig{Enabled: true} }

// triggerEngine owns the timers for one sink and makes the synchronous
// flush-now decision on every write. The engine itself cannot fail: a
// missing condition simply never fires.
//
// flush is invoked from timer goroutines; the owning sink guards its own
// state and must tolerate a late flush after Close (as a no-op).
type triggerEngine struct {
	cfg   TriggerConfig
	flush func()

	mu       sync.Mutex
	interval *time.Timer
	idle     *time.Timer
	stopped  bool
}

func newTriggerEngine(cfg TriggerConfig, flush func()) *triggerEngine {
	return &triggerEngine{cfg: cfg, flush: flush}
}

// start arms the interval timer. Separate from the constructor so a sink can
// finish its own setup before timers may fire.
func (e *triggerEngine) start() {
	e.armInterval()
}

// onWrite is called synchronously on every accepted write, with the buffer
// length after the append. It re-arms the idle timer and reports whether the
// write must flush before returning.
func (e *triggerEngine) onWrite(level Level, buffered int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || !e.cfg.Enabled {
		return false
	}
	if e.cfg.OnIdle > 0 {
		if e.idle != nil {
			e.idle.Stop()
		}
		e.idle = time.AfterFunc(e.cfg.OnIdle, e.flush)
	}
	if e.cfg.OnSize > 0 && buffered >= e.cfg.OnSize {
		return true
	}
	if e.cfg.OnLevel > 0 && level >= e.cfg.OnLevel {
		return true
	}
	return false
}

// flushed restarts the interval countdown. Sinks call it at the end of every
// flush attempt, including empty ones, so the period is measured from the
// last drain rather than from construction.
func (e *triggerEngine) flushed() {
	e.armInterval()
}

func (e *triggerEngine) armInterval() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || !e.cfg.Enabled || e.cfg.Interval <= 0 {
		return
	}
	if e.interval != nil {
		e.interval.Stop()
	}
	e.interval = time.AfterFunc(e.cfg.Interval, e.flush)
}

// stop cancels all pending timers. Idempotent.
func (e *triggerEngine) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	if e.interval != nil {
		e.interval.Stop()
		e.interval = nil
	}
	if e.idle != nil {
		e.idle.Stop()
		e.idle = nil
	}
}
