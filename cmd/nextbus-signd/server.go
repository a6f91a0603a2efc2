package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nextbus/signd/internal/logging"
	"github.com/nextbus/signd/internal/metrics"
	"github.com/nextbus/signd/internal/session"
	"github.com/nextbus/signd/internal/signhub"
)

// signServer owns the TCP listener for sign connections, adapted from the
// teacher's internal/server.Server Serve/acceptOnce/Shutdown shape, with
// the CAN handshake dropped (this protocol has none, SPEC_FULL §9) and
// client bookkeeping delegated to signhub.Registry.
type signServer struct {
	mu           sync.RWMutex
	addr         string
	registry     *signhub.Registry
	readDeadline time.Duration
	maxSessions  int

	readyOnce sync.Once
	readyCh   chan struct{}

	lastErrMu sync.Mutex
	lastErr   error
	errCh     chan error

	listener net.Listener
	wg       sync.WaitGroup
	logger   *slog.Logger

	nextSessionID     uint64
	totalAccepted     atomic.Uint64
	totalConnected    atomic.Uint64
	totalDisconnected atomic.Uint64
	totalRejected     atomic.Uint64
}

func newSignServer(addr string, reg *signhub.Registry, readDeadline time.Duration, maxSessions int, logger *slog.Logger) *signServer {
	if logger == nil {
		logger = logging.L()
	}
	if addr == "" {
		addr = ":0"
	}
	return &signServer{
		addr:         addr,
		registry:     reg,
		readDeadline: readDeadline,
		maxSessions:  maxSessions,
		readyCh:      make(chan struct{}),
		errCh:        make(chan error, 1),
		logger:       logger,
	}
}

func (s *signServer) Addr() string           { s.mu.RLock(); defer s.mu.RUnlock(); return s.addr }
func (s *signServer) Ready() <-chan struct{} { return s.readyCh }
func (s *signServer) Errors() <-chan error   { return s.errCh }

func (s *signServer) setAddr(a string) { s.mu.Lock(); s.addr = a; s.mu.Unlock() }

func (s *signServer) setError(err error) {
	if err == nil {
		return
	}
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
	select {
	case s.errCh <- err:
	default:
	}
}

func (s *signServer) LastError() error {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	return s.lastErr
}

// Serve accepts sign connections until ctx is cancelled or a fatal
// listener error occurs.
func (s *signServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.setAddr(ln.Addr().String())
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("tcp_listen", "addr", s.Addr())
	s.logger.Info("ready")
	go func() { <-ctx.Done(); _ = ln.Close() }()
	for {
		if err := s.acceptOnce(ctx, ln); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (s *signServer) acceptOnce(ctx context.Context, ln net.Listener) error {
	conn, err := ln.Accept()
	if err != nil {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			time.Sleep(200 * time.Millisecond)
			return nil
		}
		wrap := fmt.Errorf("%w: %v", ErrAccept, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.totalAccepted.Add(1)

	if s.maxSessions > 0 && s.registry.Count() >= s.maxSessions {
		s.totalRejected.Add(1)
		s.logger.Warn("session_reject_max", "max_sessions", s.maxSessions, "remote", conn.RemoteAddr().String())
		_ = conn.Close()
		return nil
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(30 * time.Second)
	}

	id := atomic.AddUint64(&s.nextSessionID, 1)
	sess := session.New(ctx, id, conn, s.readDeadline, s.logger)
	s.registry.Add(sess)
	metrics.IncSessionAccepted()
	metrics.SetSessionsActive(s.registry.Count())
	s.totalConnected.Add(1)
	s.logger.Info("session_connected", "session_id", id, "remote", conn.RemoteAddr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.drainInbound(sess)
		s.registry.Remove(sess)
		metrics.IncSessionClosed()
		metrics.SetSessionsActive(s.registry.Count())
		s.totalDisconnected.Add(1)
		if err := sess.LastError(); err != nil {
			s.logger.Warn("session_closed", "session_id", id, "error", err)
		} else {
			s.logger.Info("session_closed", "session_id", id)
		}
	}()
	return nil
}

// drainInbound discards decoded messages from signs that carry no
// request/response semantics in this system (signs are driven, not
// polled) until the session terminates. The inbound queue is unbounded,
// so the reader never blocks on it; draining keeps undelivered messages
// from accumulating in that queue for the life of the session.
func (s *signServer) drainInbound(sess *session.Session) {
	for {
		select {
		case _, ok := <-sess.In():
			if !ok {
				<-sess.Done()
				return
			}
		case <-sess.Done():
			return
		}
	}
}

// Shutdown closes the listener and waits for all session-tracking
// goroutines to finish, or ctx to expire.
func (s *signServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	for _, c := range s.registry.Snapshot() {
		c.Sess.Close()
	}
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: shutdown timeout: %v", ErrContext, ctx.Err())
	case <-done:
		s.logger.Info("shutdown_summary",
			"accepted", s.totalAccepted.Load(),
			"connected", s.totalConnected.Load(),
			"disconnected", s.totalDisconnected.Load(),
			"rejected", s.totalRejected.Load(),
		)
		return nil
	}
}
