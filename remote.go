package xsink

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
)

// RemoteSinkOptions configures a RemoteSink. The zero value gets the
// documented defaults filled in by the constructor.
type RemoteSinkOptions struct {
	// MinLevel drops records below this severity at entry. Default LevelInfo.
	MinLevel Level

	// Formatter renders each record into one element of the batch body.
	// Default JSONFormatter.
	Formatter Formatter

	// BatchSize triggers a flush once the queue holds this many records and
	// no send is in flight. Default 10.
	BatchSize int

	// Interval flushes any queued records periodically. Default 5s.
	Interval time.Duration

	// MaxRetries bounds re-sends after the initial attempt; the delay before
	// retry n is RetryDelay * 2^(n-1). Defaults 3 and 1s; pass -1 to disable
	// retries entirely.
	MaxRetries int
	RetryDelay time.Duration

	// Client performs the HTTP requests. Default: 30s timeout client.
	Client *http.Client

	// Headers are added to every batch request.
	Headers map[string]string

	// OnError receives the single report emitted when a batch exhausts its
	// retries and is dropped. Default writes to stderr.
	OnError ErrorHandler
}

func (o *RemoteSinkOptions) setDefaults() {
	if o.MinLevel == 0 {
		o.MinLevel = LevelInfo
	}
	if o.Formatter == nil {
		o.Formatter = JSONFormatter{}
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if o.OnError == nil {
		o.OnError = stderrHandler
	}
}

// RemoteSink accumulates raw records and delivers them to an HTTP endpoint
// in batches. Delivery is single-flight: at most one outstanding request per
// sink, so batches arrive in queue order. A batch that exhausts its retry
// budget is reported once and dropped, never re-queued.
type RemoteSink struct {
	opts   RemoteSinkOptions
	url    string
	engine *triggerEngine

	mu       sync.Mutex
	queue    []Record
	inFlight bool
	closing  bool
	wg       sync.WaitGroup

	closeOnce sync.Once
}

var _ Sink = (*RemoteSink)(nil)

// NewRemoteSink targets url with one POST per batch; the body is a JSON
// array of formatter output strings, success is any 2xx status.
func NewRemoteSink(url string, opts RemoteSinkOptions) *RemoteSink {
	opts.setDefaults()
	s := &RemoteSink{opts: opts, url: url}
	s.engine = newTriggerEngine(TriggerConfig{
		Enabled:  true,
		Interval: opts.Interval,
		OnSize:   opts.BatchSize,
	}, s.Flush)
	s.engine.start()
	return s
}

// Write enqueues the raw record. Reaching BatchSize kicks off a
// fire-and-forget flush; the caller never waits on network I/O.
func (s *RemoteSink) Write(r Record) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return ErrClosed
	}
	if r.Level < s.opts.MinLevel {
		s.mu.Unlock()
		return nil
	}
	s.queue = append(s.queue, r)
	n := len(s.queue)
	s.mu.Unlock()

	if s.engine.onWrite(r.Level, n) {
		s.Flush()
	}
	return nil
}

// Flush snapshots the queue and sends it in the background. Silent no-op
// when the queue is empty or a send is already in flight.
func (s *RemoteSink) Flush() {
	s.mu.Lock()
	if s.inFlight || s.closing || len(s.queue) == 0 {
		s.mu.Unlock()
		s.engine.flushed()
		return
	}
	batch := s.queue
	s.queue = nil
	s.inFlight = true
	s.wg.Add(1)
	s.mu.Unlock()
	s.engine.flushed()

	go func() {
		defer s.wg.Done()
		s.deliver(batch)
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()
}

// deliver attempts the batch until it succeeds or the retry budget runs out.
// Transport errors and non-2xx statuses are the same failure.
func (s *RemoteSink) deliver(batch []Record) {
	lines := make([]string, len(batch))
	for i := range batch {
		lines[i] = s.opts.Formatter.Format(batch[i])
	}
	body, err := json.Marshal(lines)
	if err != nil {
		s.opts.OnError(errors.Wrap(err, "remote sink: encode batch"))
		return
	}

	b := &backoff.Backoff{
		Min:    s.opts.RetryDelay,
		Max:    s.opts.RetryDelay << uint(s.opts.MaxRetries),
		Factor: 2,
	}
	// One ID per batch, stable across retries, so the receiver can
	// deduplicate a resend it already accepted.
	batchID := uuid.NewString()
	var lastErr error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(b.Duration())
		}
		if lastErr = s.post(batchID, body); lastErr == nil {
			return
		}
	}
	s.opts.OnError(errors.Wrapf(lastErr,
		"remote sink: dropped batch of %d records after %d attempts",
		len(batch), s.opts.MaxRetries+1))
}

func (s *RemoteSink) post(batchID string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Batch-ID", batchID)
	for k, v := range s.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// Close cancels the periodic timer, waits for the in-flight send, then
// delivers whatever is still queued, blocking until that last batch settles.
// Idempotent.
func (s *RemoteSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		s.engine.stop()
		s.wg.Wait()

		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()
		if len(batch) > 0 {
			s.deliver(batch)
		}
	})
	return nil
}
