package xsink

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("child process tests need a POSIX shell")
	}
}

func TestCmdWorkerDeliversEnvelopesToChild(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	out := filepath.Join(t.TempDir(), "received.jsonl")
	factory := NewCmdWorkerFactory("sh", "-c", "cat > "+out)

	w, err := factory()
	require.NoError(t, err)

	require.NoError(t, w.Send(Envelope{Type: EnvelopeLog, Data: "level=info msg=hello"}))
	require.NoError(t, w.Send(Envelope{Type: EnvelopeClose}))
	require.NoError(t, <-w.Exited(), "stdin EOF means a clean exit")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"type":"log","data":"level=info msg=hello"}`)
}

func TestCmdWorkerKilledChildSurfacesExitError(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	w, err := NewCmdWorkerFactory("cat")()
	require.NoError(t, err)

	cw := w.(*cmdWorker)
	require.NoError(t, cw.cmd.Process.Kill())
	require.Error(t, <-w.Exited(), "non-zero exit is the worker's terminal error")
}

func TestChannelSinkRestartsKilledChildProcess(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	opts := fastChannelOpts()
	s, err := NewChannelSink(NewCmdWorkerFactory("cat"), opts)
	require.NoError(t, err)

	require.NoError(t, s.Write(rec(LevelInfo, "to-child")))

	s.mu.Lock()
	first := s.worker.(*cmdWorker)
	s.mu.Unlock()
	require.NoError(t, first.cmd.Process.Kill())

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.state == stateRunning && s.worker != nil && s.worker != Worker(first)
	}, 2*time.Second, 5*time.Millisecond, "supervisor respawns the child")

	require.NoError(t, s.Write(rec(LevelInfo, "to-replacement")))
	require.NoError(t, s.Close())
}

func TestFuncWorkerCrashErrorReachesSupervisor(t *testing.T) {
	t.Parallel()

	w := NewFuncWorker(1, func(Envelope) error { return errors.New("boom") })

	// A writer hammering Send while the worker dies must not swallow the
	// terminal error.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for w.Send(Envelope{Type: EnvelopeLog, Data: "x"}) == nil {
		}
	}()

	require.EqualError(t, <-w.Exited(), "boom")
	<-stopped
}
