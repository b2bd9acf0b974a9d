package xsink

import (
	"encoding/json"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
)

// funcWorker runs a handler on its own goroutine, fed from a mailbox
// channel. It exits cleanly on a close envelope and counts as crashed when
// the handler returns an error or panics.
type funcWorker struct {
	mailbox chan Envelope
	exited  chan error
	// done aborts blocked Sends. It is a separate channel so a Send racing
	// the exit never consumes the terminal error meant for the supervisor.
	done chan struct{}

	mu   sync.Mutex
	dead bool
}

// NewFuncWorker starts a goroutine worker with the given mailbox capacity
// (default 1024 when <= 0). handle is called once per log envelope.
func NewFuncWorker(capacity int, handle func(Envelope) error) Worker {
	if capacity <= 0 {
		capacity = 1024
	}
	w := &funcWorker{
		mailbox: make(chan Envelope, capacity),
		exited:  make(chan error, 1),
		done:    make(chan struct{}),
	}
	go w.run(handle)
	return w
}

func (w *funcWorker) Send(env Envelope) error {
	w.mu.Lock()
	if w.dead {
		w.mu.Unlock()
		return errors.New("worker exited")
	}
	w.mu.Unlock()

	select {
	case w.mailbox <- env:
		return nil
	case <-w.done:
		return errors.New("worker exited")
	}
}

func (w *funcWorker) Exited() <-chan error { return w.exited }

func (w *funcWorker) run(handle func(Envelope) error) {
	defer func() {
		if p := recover(); p != nil {
			w.finish(errors.Errorf("worker panic: %v", p))
		}
	}()
	for env := range w.mailbox {
		if env.Type == EnvelopeClose {
			w.finish(nil)
			return
		}
		if err := handle(env); err != nil {
			w.finish(err)
			return
		}
	}
}

func (w *funcWorker) finish(err error) {
	w.mu.Lock()
	w.dead = true
	w.mu.Unlock()
	w.exited <- err
	close(w.exited)
	close(w.done)
}

// cmdWorker is a child process receiving envelopes as JSON lines on stdin.
// A close envelope closes stdin; the child is expected to exit on EOF.
type cmdWorker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	exited chan error

	mu sync.Mutex
}

// NewCmdWorkerFactory returns a WorkerFactory spawning the given command for
// every (re)start. The child's non-zero exit status surfaces as the worker's
// terminal error.
func NewCmdWorkerFactory(name string, args ...string) WorkerFactory {
	return func() (Worker, error) {
		cmd := exec.Command(name, args...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, errors.Wrap(err, "open stdin pipe")
		}
		if err := cmd.Start(); err != nil {
			return nil, errors.Wrapf(err, "start worker command %q", name)
		}
		w := &cmdWorker{cmd: cmd, stdin: stdin, exited: make(chan error, 1)}
		go w.wait()
		return w, nil
	}
}

func (w *cmdWorker) Send(env Envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if env.Type == EnvelopeClose {
		return w.stdin.Close()
	}
	line, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}
	_, err = w.stdin.Write(append(line, '\n'))
	return err
}

func (w *cmdWorker) Exited() <-chan error { return w.exited }

func (w *cmdWorker) wait() {
	err := w.cmd.Wait()
	w.exited <- err
	close(w.exited)
}
