package session

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/nextbus/signd/internal/metrics"
	"github.com/nextbus/signd/internal/proto"
)

// startReader launches the goroutine decoding frames off the connection
// and delivering them to the inbound queue. It classifies errors per the
// two-tier model in SPEC_FULL §7: UnknownTypeError and
// MalformedPayloadError are logged and the loop continues; everything
// else (I/O errors, ErrFraming, ChecksumMismatchError) terminates the
// session. This intentionally diverges from the original source, whose
// reader loop `continue`s even on I/O errors and busy-loops a dead socket.
func (s *Session) startReader(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.in.Close()
		defer s.Close()
		for {
			if s.readDeadline > 0 {
				_ = s.conn.SetReadDeadline(time.Now().Add(s.readDeadline))
			}
			m, err := s.codec.Decode(s.conn)
			if err != nil {
				var ute *proto.UnknownTypeError
				var mpe *proto.MalformedPayloadError
				switch {
				case errors.As(err, &ute):
					metrics.IncFrameMalformed(metrics.ReasonUnknownType)
					s.logger.Warn("frame_unknown_type", "error", err)
					continue
				case errors.As(err, &mpe):
					metrics.IncFrameMalformed(metrics.ReasonMalformedPayload)
					s.logger.Warn("frame_malformed_payload", "error", err)
					continue
				case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
					return
				case errors.Is(err, proto.ErrFraming):
					metrics.IncFrameMalformed(metrics.ReasonFraming)
					s.logger.Error("frame_framing_error", "error", err)
					s.setError(err)
					return
				default:
					var cme *proto.ChecksumMismatchError
					if errors.As(err, &cme) {
						metrics.IncFrameMalformed(metrics.ReasonChecksumMismatch)
					}
					if ne, ok := err.(net.Error); ok && ne.Timeout() {
						continue
					}
					s.logger.Error("conn_read_error", "error", err)
					s.setError(err)
					return
				}
			}
			metrics.IncFrameDecoded(m.Type.String())
			if err := s.in.Send(m); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
}
