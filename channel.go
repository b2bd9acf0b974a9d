package xsink

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Envelope is the message shape crossing the worker boundary.
type Envelope struct {
	Type string `json:"type"`           // EnvelopeLog or EnvelopeClose
	Data string `json:"data,omitempty"` // formatted record for EnvelopeLog
}

const (
	EnvelopeLog   = "log"
	EnvelopeClose = "close"
)

// Worker is an isolated execution unit with a mailbox: a goroutine, a child
// process, anything that can receive envelopes and report its own exit.
type Worker interface {
	// Send delivers one envelope. An error means the worker can no longer
	// accept messages; the supervisor treats it as a failure.
	Send(Envelope) error

	// Exited receives the worker's terminal error (nil for a clean exit)
	// and is closed afterwards, so multiple waiters all unblock.
	Exited() <-chan error
}

// WorkerFactory spawns a fresh worker. Called once at sink construction and
// again for every restart.
type WorkerFactory func() (Worker, error)

// channelState is the supervisor's explicit state machine.
type channelState uint8

const (
	stateRunning channelState = iota
	stateRestarting
	stateCircuitOpen
	stateClosed
)

// ChannelSinkOptions configures a ChannelSink. The zero value gets the
// documented defaults filled in by the constructor.
type ChannelSinkOptions struct {
	// MinLevel drops records below this severity at entry. Default LevelInfo.
	MinLevel Level

	// Formatter renders records before they cross the worker boundary.
	// Default TextFormatter.
	Formatter Formatter

	// MaxRestarts bounds consecutive worker failures before the circuit
	// opens; a completed replay resets the count. Default 5.
	MaxRestarts int

	// RestartDelay is the pause before spawning a replacement worker.
	// Default 1s.
	RestartDelay time.Duration

	// OnError receives worker failures and the one-time circuit-open report.
	// Default writes to stderr.
	OnError ErrorHandler
}

func (o *ChannelSinkOptions) setDefaults() {
	if o.MinLevel == 0 {
		o.MinLevel = LevelInfo
	}
	if o.Formatter == nil {
		o.Formatter = &TextFormatter{}
	}
	if o.MaxRestarts <= 0 {
		o.MaxRestarts = 5
	}
	if o.RestartDelay <= 0 {
		o.RestartDelay = time.Second
	}
	if o.OnError == nil {
		o.OnError = stderrHandler
	}
}

// ChannelSink forwards formatted records to a Worker and supervises it.
// While no worker is running, messages accumulate in an unbounded replay
// queue and are delivered, in order and ahead of newer writes, once a
// replacement worker comes up. After MaxRestarts consecutive failures the
// circuit opens: the transition is reported once, no further restarts are
// attempted, and writes keep queueing indefinitely.
type ChannelSink struct {
	opts    ChannelSinkOptions
	factory WorkerFactory

	mu           sync.Mutex
	state        channelState
	worker       Worker
	queue        []string
	restarts     int
	restartTimer *time.Timer
	closing      bool

	closeOnce sync.Once
}

var _ Sink = (*ChannelSink)(nil)

// NewChannelSink spawns the initial worker and registers its exit observer.
// A failed initial spawn propagates: the sink is unusable without a worker
// unit to supervise.
func NewChannelSink(factory WorkerFactory, opts ChannelSinkOptions) (*ChannelSink, error) {
	opts.setDefaults()
	s := &ChannelSink{opts: opts, factory: factory}

	w, err := factory()
	if err != nil {
		return nil, errors.Wrap(err, "channel sink: spawn worker")
	}
	s.worker = w
	s.state = stateRunning
	go s.watch(w)
	return s, nil
}

// Write formats the record and sends it to the running worker, or queues it
// for replay while no worker is available.
func (s *ChannelSink) Write(r Record) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return ErrClosed
	}
	if r.Level < s.opts.MinLevel {
		s.mu.Unlock()
		return nil
	}
	msg := s.opts.Formatter.Format(r)
	if s.state == stateRunning && s.worker != nil {
		w := s.worker
		s.mu.Unlock()
		if err := w.Send(Envelope{Type: EnvelopeLog, Data: msg}); err != nil {
			s.redeliver(w, msg)
		}
		return nil
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()
	return nil
}

// redeliver handles a Send that failed against a dying worker. By the time
// the failure surfaces, the supervisor may already have installed a
// replacement and finished its replay; queueing blindly would strand the
// message until the next outage. Retry against each newer worker and fall
// back to the replay queue only while no replacement is running.
func (s *ChannelSink) redeliver(failed Worker, msg string) {
	for {
		s.mu.Lock()
		if !s.closing && s.state == stateRunning && s.worker != nil && s.worker != failed {
			w := s.worker
			s.mu.Unlock()
			if err := w.Send(Envelope{Type: EnvelopeLog, Data: msg}); err == nil {
				return
			}
			failed = w
			continue
		}
		s.queue = append(s.queue, msg)
		s.mu.Unlock()
		return
	}
}

// watch waits for the worker's exit and feeds the state machine.
func (s *ChannelSink) watch(w Worker) {
	err := <-w.Exited()
	s.onExit(w, err)
}

func (s *ChannelSink) onExit(w Worker, err error) {
	s.mu.Lock()
	if s.worker != w {
		// Stale notification from a worker already replaced.
		s.mu.Unlock()
		return
	}
	s.worker = nil
	if s.closing {
		s.state = stateClosed
		s.mu.Unlock()
		return
	}

	s.restarts++
	if s.restarts > s.opts.MaxRestarts {
		s.state = stateCircuitOpen
		n := s.restarts
		s.mu.Unlock()
		s.opts.OnError(errors.Errorf(
			"channel sink: circuit open after %d consecutive worker failures, queueing only", n))
		return
	}
	s.state = stateRestarting
	s.restartTimer = time.AfterFunc(s.opts.RestartDelay, s.respawn)
	s.mu.Unlock()

	if err != nil {
		s.opts.OnError(errors.Wrap(err, "channel sink: worker exited"))
	}
}

// respawn starts a replacement worker and replays the backlog. The state
// stays restarting until the replay finishes, so writes arriving meanwhile
// queue behind the backlog instead of overtaking it.
func (s *ChannelSink) respawn() {
	s.mu.Lock()
	if s.closing || s.state != stateRestarting {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// Spawning may be slow (a child process); writers must not wait on it.
	w, err := s.factory()

	s.mu.Lock()
	if s.closing || s.state != stateRestarting {
		s.mu.Unlock()
		if err == nil {
			_ = w.Send(Envelope{Type: EnvelopeClose})
		}
		return
	}
	if err != nil {
		s.restarts++
		if s.restarts > s.opts.MaxRestarts {
			s.state = stateCircuitOpen
			n := s.restarts
			s.mu.Unlock()
			s.opts.OnError(errors.Errorf(
				"channel sink: circuit open after %d consecutive worker failures, queueing only", n))
			return
		}
		s.restartTimer = time.AfterFunc(s.opts.RestartDelay, s.respawn)
		s.mu.Unlock()
		s.opts.OnError(errors.Wrap(err, "channel sink: respawn worker"))
		return
	}
	s.worker = w
	s.mu.Unlock()
	go s.watch(w)
	s.replay(w)
}

// replay drains the queue head-first to the new worker. Only a complete
// replay resets the consecutive-failure budget.
func (s *ChannelSink) replay(w Worker) {
	for {
		s.mu.Lock()
		if s.closing || s.worker != w {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.state = stateRunning
			s.restarts = 0
			s.mu.Unlock()
			return
		}
		msg := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if err := w.Send(Envelope{Type: EnvelopeLog, Data: msg}); err != nil {
			// Put the message back; the exit observer handles the failure.
			s.mu.Lock()
			s.queue = append([]string{msg}, s.queue...)
			s.mu.Unlock()
			return
		}
	}
}

// Close sends the graceful shutdown envelope and waits for the worker to
// terminate. Idempotent.
func (s *ChannelSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		if s.restartTimer != nil {
			s.restartTimer.Stop()
		}
		w := s.worker
		if w == nil {
			s.state = stateClosed
		}
		s.mu.Unlock()

		if w != nil {
			_ = w.Send(Envelope{Type: EnvelopeClose})
			<-w.Exited()
		}
	})
	return nil
}
