package session

import (
	"context"

	"github.com/nextbus/signd/internal/metrics"
)

// startWriter launches the goroutine draining the outbound queue and
// writing each Message's frame to the connection. Unlike the teacher's
// writer, which batches CAN frames on a flush ticker, this one writes one
// frame per message immediately: the protocol has no benefit from
// batching and EncodeTo already writes a whole frame in one call, so no
// message is ever torn across two net.Conn.Write calls (§4.2.2).
func (s *Session) startWriter(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.Close()
		out := s.out.Out()
		for {
			select {
			case m, ok := <-out:
				if !ok {
					return
				}
				if _, err := s.codec.EncodeTo(s.conn, m); err != nil {
					metrics.IncError("conn_write")
					s.logger.Error("conn_write_error", "error", err)
					s.setError(err)
					return
				}
				metrics.IncFrameEncoded(m.Type.String())
			case <-ctx.Done():
				return
			}
		}
	}()
}
