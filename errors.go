package xsink

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrNoSink is returned by Builder.Build when no sink was configured.
	ErrNoSink = errors.New("xsink: no sink configured")

	// ErrClosed is returned by Write on a sink that has begun closing.
	ErrClosed = errors.New("xsink: sink closed")
)

// ErrorHandler receives delivery failures that the pipeline absorbed instead
// of surfacing to the producer: failed stream writes, exhausted remote
// retries, worker crashes and the circuit-breaker transition. Handlers must
// be safe for concurrent use.
type ErrorHandler func(err error)

// stderrHandler is the default ErrorHandler. Delivery failures must go
// somewhere even when the caller wired nothing; stderr is the one stream
// that needs no sink of its own.
func stderrHandler(err error) {
	fmt.Fprintf(os.Stderr, "xsink: %v\n", err)
}
