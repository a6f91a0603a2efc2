package session

import "errors"

// ErrSessionClosed is returned by Send once the session's outbound side
// has stopped accepting messages (writer goroutine exited).
var ErrSessionClosed = errors.New("session: closed")

// Sentinel errors used for wrapping so callers can classify via errors.Is,
// mirroring the teacher's server/errors.go convention.
var (
	ErrConnRead  = errors.New("conn_read")
	ErrConnWrite = errors.New("conn_write")
)
