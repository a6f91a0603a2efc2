// Package session adapts a duplex byte connection to two unidirectional
// Message channels. It generalizes the teacher's reader/writer task split
// (internal/server/reader.go, internal/server/writer.go) from CAN frames
// to protocol Messages, and replaces the teacher's hub.Client buffered
// channel with an unboundedQueue so sends never block on a slow peer.
package session

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/nextbus/signd/internal/logging"
	"github.com/nextbus/signd/internal/proto"
)

// Session owns one accepted connection's reader and writer goroutines.
type Session struct {
	ID         uint64
	conn       net.Conn
	codec      proto.Codec
	readDeadline time.Duration

	in  *unboundedQueue[proto.Message]
	out *unboundedQueue[proto.Message]

	logger *slog.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
	done      chan struct{}

	lastErrMu sync.Mutex
	lastErr   error
}

// New starts a Session over conn: it spawns the reader and writer
// goroutines immediately, matching the teacher's acceptOnce, which starts
// both tasks as soon as a client is registered — there is no handshake
// gate in this protocol (SPEC_FULL §9).
func New(ctx context.Context, id uint64, conn net.Conn, readDeadline time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.L()
	}
	s := &Session{
		ID:           id,
		conn:         conn,
		readDeadline: readDeadline,
		in:           newUnboundedQueue[proto.Message](),
		out:          newUnboundedQueue[proto.Message](),
		logger:       logger.With("conn_id", id, "remote", conn.RemoteAddr().String()),
		done:         make(chan struct{}),
	}
	s.startReader(ctx)
	s.startWriter(ctx)
	go func() {
		s.wg.Wait()
		close(s.done)
	}()
	return s
}

// In returns the channel of Messages decoded from the peer.
func (s *Session) In() <-chan proto.Message { return s.in.Out() }

// Send enqueues m for transmission to the peer. It never blocks and
// returns ErrSessionClosed once the writer has stopped draining.
func (s *Session) Send(m proto.Message) error {
	if err := s.out.Send(m); err != nil {
		return ErrSessionClosed
	}
	return nil
}

// RemoteAddr returns the underlying connection's remote address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// OutboundDepth reports how many messages are currently buffered waiting
// to be written, used by the registry to detect a wedged writer (§10.5).
func (s *Session) OutboundDepth() int { return s.out.Len() }

// Done is closed once both the reader and writer goroutines have exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) setError(err error) {
	if err == nil {
		return
	}
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
}

// LastError returns the last fatal error observed by either task, if any.
func (s *Session) LastError() error {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	return s.lastErr
}

// Close tears down the session: it closes the connection (unblocking
// whichever task is in a blocking read/write) and the outbound queue.
// Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		s.out.Close()
	})
}

