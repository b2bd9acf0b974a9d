package xsink

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// BufferSinkOptions configures a BufferSink. The zero value gets the
// documented defaults filled in by the constructor.
type BufferSinkOptions struct {
	// MinLevel drops records below this severity at entry. Default LevelInfo.
	MinLevel Level

	// Formatter renders records before buffering. Default TextFormatter.
	Formatter Formatter

	// Triggers configures automatic flushing. Nil gets the file-sink
	// defaults: interval 1s, 100 records, immediate on error, idle 10s.
	Triggers *TriggerConfig

	// OnError receives absorbed delivery failures. Default writes to stderr.
	OnError ErrorHandler
}

func (o *BufferSinkOptions) setDefaults() {
	if o.MinLevel == 0 {
		o.MinLevel = LevelInfo
	}
	if o.Formatter == nil {
		o.Formatter = &TextFormatter{}
	}
	if o.Triggers == nil {
		o.Triggers = &TriggerConfig{
			Enabled:  true,
			Interval: time.Second,
			OnSize:   100,
			OnLevel:  LevelError,
			OnIdle:   10 * time.Second,
		}
	}
	if o.OnError == nil {
		o.OnError = stderrHandler
	}
}

// BufferSink accumulates formatted lines in memory and drains them to an
// append-mode stream when a trigger fires. Stream writes happen on a single
// background drainer, in flush order, and their failures are absorbed: the
// batch is reported to OnError and lost, never retried, never surfaced to
// the producer.
type BufferSink struct {
	opts   BufferSinkOptions
	engine *triggerEngine
	out    io.WriteCloser

	mu       sync.Mutex
	buf      []string
	pending  [][]string
	draining bool
	closing  bool
	wg       sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

var _ Sink = (*BufferSink)(nil)

// NewBufferSink wraps an already-open stream. The sink owns the stream from
// here on; Close releases it exactly once.
func NewBufferSink(w io.WriteCloser, opts BufferSinkOptions) *BufferSink {
	opts.setDefaults()
	s := &BufferSink{opts: opts, out: w}
	s.engine = newTriggerEngine(*opts.Triggers, s.Flush)
	s.engine.start()
	return s
}

// NewFileSink creates the destination file (and its directory) in append
// mode and buffers into it. Resource acquisition is the one failure that
// propagates: without a destination no buffering can safely proceed.
func NewFileSink(path string, opts BufferSinkOptions) (*BufferSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create log directory %q", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %q", path)
	}
	return NewBufferSink(f, opts), nil
}

// Write formats and buffers the record, then runs the trigger decision.
// Size and severity triggers drain before Write returns.
func (s *BufferSink) Write(r Record) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return ErrClosed
	}
	if r.Level < s.opts.MinLevel {
		s.mu.Unlock()
		return nil
	}
	s.buf = append(s.buf, s.opts.Formatter.Format(r))
	n := len(s.buf)
	s.mu.Unlock()

	if s.engine.onWrite(r.Level, n) {
		s.Flush()
	}
	return nil
}

// Flush drains the current buffer to the stream. No-op when the buffer is
// empty or the sink is closing.
func (s *BufferSink) Flush() {
	s.flush(false)
}

func (s *BufferSink) flush(final bool) {
	s.mu.Lock()
	if (s.closing && !final) || len(s.buf) == 0 {
		s.mu.Unlock()
		s.engine.flushed()
		return
	}
	// Snapshot-and-clear: anything written from here on belongs to the next
	// buffer generation, never to this batch.
	batch := s.buf
	s.buf = nil
	s.pending = append(s.pending, batch)
	if !s.draining {
		s.draining = true
		s.wg.Add(1)
		go s.drain()
	}
	s.mu.Unlock()
	s.engine.flushed()
}

// drain writes queued batches in order until none remain. One drainer runs
// at a time, so batches never interleave on the stream.
func (s *BufferSink) drain() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		batches := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, batch := range batches {
			payload := strings.Join(batch, "\n") + "\n"
			if _, err := s.out.Write([]byte(payload)); err != nil {
				s.opts.OnError(errors.Wrapf(err, "buffer sink: dropped batch of %d records", len(batch)))
			}
		}
	}
}

// Close marks the sink closing, cancels timers, performs one final flush and
// releases the stream once the drainer confirms completion. Idempotent.
func (s *BufferSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		s.engine.stop()
		s.flush(true)
		s.wg.Wait()
		s.closeErr = s.out.Close()
	})
	return s.closeErr
}
