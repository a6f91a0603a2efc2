// Package firmware implements firmware image delivery over the sign
// protocol. It supplements the distilled spec (SPEC_FULL §10.6): the wire
// table carries a FirmwareCode message type but the application-level
// delivery flow — chunking, retry, and acknowledgement — isn't specified
// beyond that, so this is grounded on the teacher's internal/transport.AsyncTx
// single-goroutine funnel pattern for the send side and the teacher's
// hand-rolled doubling backoff (cmd/can-server/backend_serial.go,
// rxBackoffMin/rxBackoffMax) for the retry side.
package firmware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nextbus/signd/internal/metrics"
	"github.com/nextbus/signd/internal/proto"
)

// ErrPushFailed is returned once a chunk exhausts its retry budget
// without an acknowledgement.
var ErrPushFailed = errors.New("firmware: push failed: no ack after retries")

const (
	// defaultMaxChunkSize keeps each FirmwareCode frame's payload well
	// inside the 16-bit frame-length budget, with margin for the other
	// header fields.
	defaultMaxChunkSize = 4096
	defaultMaxRetries   = 5
	defaultBackoffMin   = 20 * time.Millisecond
	defaultBackoffMax   = 500 * time.Millisecond
)

// Pusher splits a firmware image into FirmwareCode chunks and drives them
// across a session, one chunk at a time, waiting for an acknowledgement
// before advancing. There is no AckFirmwareCode type in the wire
// registry, so the only acknowledgement signal the protocol offers is an
// AppRunning message reporting ReasonNewFirmware — in the absence of a
// dedicated ack type, the Pusher treats that as "the sign applied the
// last chunk and is ready for the next one" (§10.6).
type Pusher struct {
	MaxChunkSize int
	MaxRetries   int
	BackoffMin   time.Duration
	BackoffMax   time.Duration

	// Sleep is overridable in tests so retry timing doesn't depend on
	// real wall-clock delays, mirroring the teacher's sleepFn hook.
	Sleep func(time.Duration)
}

// NewPusher returns a Pusher configured with the defaults from §10.6.
func NewPusher() *Pusher {
	return &Pusher{
		MaxChunkSize: defaultMaxChunkSize,
		MaxRetries:   defaultMaxRetries,
		BackoffMin:   defaultBackoffMin,
		BackoffMax:   defaultBackoffMax,
		Sleep:        time.Sleep,
	}
}

func (p *Pusher) chunkSize() int {
	if p.MaxChunkSize > 0 {
		return p.MaxChunkSize
	}
	return defaultMaxChunkSize
}

func (p *Pusher) maxRetries() int {
	if p.MaxRetries > 0 {
		return p.MaxRetries
	}
	return defaultMaxRetries
}

func (p *Pusher) backoffBounds() (time.Duration, time.Duration) {
	min, max := p.BackoffMin, p.BackoffMax
	if min <= 0 {
		min = defaultBackoffMin
	}
	if max <= 0 {
		max = defaultBackoffMax
	}
	return min, max
}

// Push splits image into chunks and drives them one at a time across
// send, reading acks off acks. seq is the starting FirmwareCode sequence
// number and wraps modulo 256 across chunks, matching the wire field's
// width.
func (p *Pusher) Push(ctx context.Context, send func(proto.Message) error, acks <-chan proto.Message, seq uint8, destAddr uint16, image []byte) error {
	size := p.chunkSize()
	for off := 0; off < len(image); off += size {
		end := off + size
		if end > len(image) {
			end = len(image)
		}
		if err := p.pushChunk(ctx, send, acks, seq, destAddr, image[off:end]); err != nil {
			return fmt.Errorf("firmware: chunk at offset %d: %w", off, err)
		}
		seq++
	}
	return nil
}

func (p *Pusher) pushChunk(ctx context.Context, send func(proto.Message) error, acks <-chan proto.Message, seq uint8, destAddr uint16, chunk []byte) error {
	backoffMin, backoffMax := p.backoffBounds()
	backoff := backoffMin
	msg := proto.NewFirmwareCode(seq, destAddr, chunk)
	for attempt := 0; attempt < p.maxRetries(); attempt++ {
		if err := send(msg); err != nil {
			return err
		}
		if p.waitForAck(ctx, acks, backoff) {
			metrics.IncFirmwareChunkSent()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p.Sleep(backoff)
		backoff *= 2
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
	metrics.IncFirmwarePushError()
	return ErrPushFailed
}

// waitForAck blocks until acks delivers an AppRunning message reporting
// ReasonNewFirmware, the timeout elapses, or ctx is cancelled.
func (p *Pusher) waitForAck(ctx context.Context, acks <-chan proto.Message, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case m, ok := <-acks:
			if !ok {
				return false
			}
			if m.Type == proto.TypeAppRunning && m.AppRunning != nil && m.AppRunning.Reason == proto.ReasonNewFirmware {
				return true
			}
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
