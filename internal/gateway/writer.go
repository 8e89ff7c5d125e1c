package gateway

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/johnjansen/sse-gateway/internal/eventformat"
)

// errBackpressure is returned by StreamWriter.WriteHeartbeat when the
// underlying write did not complete within heartbeatWriteBudget. It is
// never treated as fatal; the heartbeat loop logs it and moves on (spec
// §4.F step 4), the same way the teacher's sendEvent never aborts the
// broker loop over a single slow client.
var errBackpressure = errors.New("gateway: heartbeat write backpressured")

// heartbeatWriteBudget bounds how long a single heartbeat write may take
// before it is abandoned as backpressured. It does not close the
// connection: a slow client still owns its writer goroutine below,
// writing whenever it eventually drains.
const heartbeatWriteBudget = 2 * time.Second

// StreamWriter adapts an http.ResponseWriter/http.Flusher pair to
// registry.Writer. It bridges the spec's two different failure
// semantics (§9 Open Question): WriteEvent is fatal-on-error and
// blocking, matching /internal/send's synchronous contract; WriteHeartbeat
// is best-effort and time-boxed, the way rad-gateway's sendEvent guards a
// single slow subscriber with a select/time.After rather than blocking
// the whole broadcast loop.
//
// mu serializes the two write paths so a heartbeat tick can never
// interleave bytes with an in-flight send, per spec §5(a).
type StreamWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher

	closeOnce sync.Once
	done      chan struct{}
}

// NewStreamWriter wraps w for a single SSE connection. w must also
// implement http.Flusher; callers should check this before upgrading the
// response.
func NewStreamWriter(w http.ResponseWriter, flusher http.Flusher) *StreamWriter {
	return &StreamWriter{
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
	}
}

// WriteEvent writes a fully framed event and flushes. Any error is fatal
// to the caller (spec §4.E step 2).
func (s *StreamWriter) WriteEvent(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(b); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteHeartbeat writes the heartbeat comment line without blocking the
// caller beyond heartbeatWriteBudget. A real write error and a timed-out
// (backpressured) write are both non-fatal to the caller; only the
// returned error's identity differs, for logging.
func (s *StreamWriter) WriteHeartbeat() error {
	result := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := s.w.Write([]byte(eventformat.Heartbeat))
		if err == nil {
			s.flusher.Flush()
		}
		result <- err
	}()

	select {
	case err := <-result:
		return err
	case <-time.After(heartbeatWriteBudget):
		return errBackpressure
	}
}

// Close signals the owning handler goroutine to stop serving the
// response. For an http.ResponseWriter there is no independent "close
// the socket" primitive; returning from the ServeHTTP goroutine is what
// ends the response, so Close only ever unblocks Done().
func (s *StreamWriter) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Done is closed once Close has run. The connect handler blocks on it to
// know when to return control to net/http.
func (s *StreamWriter) Done() <-chan struct{} {
	return s.done
}
