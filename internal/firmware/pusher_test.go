package firmware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nextbus/signd/internal/proto"
)

func TestPushSingleChunkAcked(t *testing.T) {
	var sent []proto.Message
	acks := make(chan proto.Message, 1)
	send := func(m proto.Message) error {
		sent = append(sent, m)
		acks <- proto.NewAppRunning(1, proto.ReasonNewFirmware)
		return nil
	}
	p := NewPusher()
	p.Sleep = func(time.Duration) {}
	image := []byte("firmware-image-bytes")
	if err := p.Push(context.Background(), send, acks, 1, 0x2000, image); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("sent %d chunks, want 1", len(sent))
	}
	fc := sent[0].FirmwareCode
	if fc.Seq != 1 || fc.DestAddr != 0x2000 || string(fc.CodeChunk) != string(image) {
		t.Fatalf("unexpected chunk: %+v", fc)
	}
}

func TestPushSplitsMultipleChunks(t *testing.T) {
	var sent []proto.Message
	acks := make(chan proto.Message, 8)
	send := func(m proto.Message) error {
		sent = append(sent, m)
		acks <- proto.NewAppRunning(1, proto.ReasonNewFirmware)
		return nil
	}
	p := NewPusher()
	p.MaxChunkSize = 4
	p.Sleep = func(time.Duration) {}
	image := []byte("0123456789")
	if err := p.Push(context.Background(), send, acks, 0, 1, image); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(sent) != 3 {
		t.Fatalf("sent %d chunks, want 3 (4+4+2 bytes)", len(sent))
	}
	var reassembled []byte
	for i, m := range sent {
		if m.FirmwareCode.Seq != uint8(i) {
			t.Fatalf("chunk %d seq = %d, want %d", i, m.FirmwareCode.Seq, i)
		}
		reassembled = append(reassembled, m.FirmwareCode.CodeChunk...)
	}
	if string(reassembled) != string(image) {
		t.Fatalf("reassembled = %q, want %q", reassembled, image)
	}
}

func TestPushRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	acks := make(chan proto.Message, 1)
	send := func(m proto.Message) error {
		attempts++
		if attempts < 3 {
			return nil // sent but no ack follows this time
		}
		acks <- proto.NewAppRunning(1, proto.ReasonNewFirmware)
		return nil
	}
	p := NewPusher()
	p.Sleep = func(time.Duration) {}
	p.BackoffMin = time.Millisecond
	p.BackoffMax = 2 * time.Millisecond
	if err := p.Push(context.Background(), send, acks, 1, 1, []byte("x")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestPushExhaustsRetriesAndFails(t *testing.T) {
	acks := make(chan proto.Message)
	send := func(m proto.Message) error { return nil } // never acked
	p := NewPusher()
	p.MaxRetries = 2
	p.Sleep = func(time.Duration) {}
	p.BackoffMin = time.Millisecond
	p.BackoffMax = time.Millisecond
	err := p.Push(context.Background(), send, acks, 1, 1, []byte("x"))
	if !errors.Is(err, ErrPushFailed) {
		t.Fatalf("Push err = %v, want ErrPushFailed", err)
	}
}

func TestPushStopsOnContextCancel(t *testing.T) {
	acks := make(chan proto.Message)
	send := func(m proto.Message) error { return nil }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPusher()
	p.Sleep = func(time.Duration) {}
	err := p.Push(ctx, send, acks, 1, 1, []byte("x"))
	if err == nil {
		t.Fatal("expected an error when context is already cancelled")
	}
}
