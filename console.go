package xsink

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// ConsoleSinkOptions configures a ConsoleSink.
type ConsoleSinkOptions struct {
	// MinLevel drops records below this severity. Default LevelInfo.
	MinLevel Level

	// Formatter renders records. Default TextFormatter.
	Formatter Formatter

	// Out receives the lines. Default os.Stdout.
	Out io.Writer

	// OnError receives absorbed write failures. Default writes to stderr.
	OnError ErrorHandler
}

// ConsoleSink is the stateless pass-through sink: no buffer, no triggers,
// one line out per accepted record.
type ConsoleSink struct {
	opts ConsoleSinkOptions
	mu   sync.Mutex
}

var _ Sink = (*ConsoleSink)(nil)

func NewConsoleSink(opts ConsoleSinkOptions) *ConsoleSink {
	if opts.MinLevel == 0 {
		opts.MinLevel = LevelInfo
	}
	if opts.Formatter == nil {
		opts.Formatter = &TextFormatter{}
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.OnError == nil {
		opts.OnError = stderrHandler
	}
	return &ConsoleSink{opts: opts}
}

func (s *ConsoleSink) Write(r Record) error {
	if r.Level < s.opts.MinLevel {
		return nil
	}
	line := s.opts.Formatter.Format(r) + "\n"
	s.mu.Lock()
	_, err := io.WriteString(s.opts.Out, line)
	s.mu.Unlock()
	if err != nil {
		s.opts.OnError(errors.Wrap(err, "console sink: write"))
	}
	return nil
}
