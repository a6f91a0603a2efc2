package main

import "errors"

// Sentinel errors used for wrapping so callers/metrics can classify via
// errors.Is, mirroring the teacher's internal/server/errors.go. This
// protocol has no handshake step, so ErrHandshake has no analog here.
var (
	ErrListen  = errors.New("listen")
	ErrAccept  = errors.New("accept")
	ErrContext = errors.New("context_cancelled")
)

func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrAccept), errors.Is(err, ErrListen):
		return "listen"
	case errors.Is(err, ErrContext):
		return "context"
	default:
		return "other"
	}
}
