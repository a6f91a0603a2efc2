package signhub

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/nextbus/signd/internal/proto"
	"github.com/nextbus/signd/internal/session"
)

func newRegisteredSession(t *testing.T, r *Registry, id uint64) (*session.Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := session.New(ctx, id, server, 0, nil)
	r.Add(s)
	t.Cleanup(func() { r.Remove(s) })
	return s, client
}

func TestRegistryAddRemoveCount(t *testing.T) {
	r := New(PolicyDrop, 0)
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0", r.Count())
	}
	s, _ := newRegisteredSession(t, r, 1)
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
	r.Remove(s)
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0 after Remove", r.Count())
	}
}

func TestRegistryBroadcastReachesAllClients(t *testing.T) {
	r := New(PolicyDrop, 0)
	_, c1 := newRegisteredSession(t, r, 1)
	_, c2 := newRegisteredSession(t, r, 2)

	r.Broadcast(proto.NewDebugMsg("hello"))

	for _, c := range []net.Conn{c1, c2} {
		m, err := (proto.Codec{}).Decode(c)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if m.Type != proto.TypeDebugMsg || m.DebugMsg.Text != "hello" {
			t.Fatalf("got %+v, want DebugMsg{hello}", m)
		}
	}
}

func TestRegistrySendToSingleClient(t *testing.T) {
	r := New(PolicyDrop, 0)
	_, c1 := newRegisteredSession(t, r, 1)
	_, c2 := newRegisteredSession(t, r, 2)

	if !r.Send(1, proto.NewDebugMsg("only-one")) {
		t.Fatal("Send to registered id 1 returned false")
	}

	done := make(chan struct{})
	go func() {
		m, err := (proto.Codec{}).Decode(c1)
		if err != nil || m.DebugMsg.Text != "only-one" {
			t.Errorf("c1 decode = %+v, %v", m, err)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for c1 to receive")
	}

	if r.Send(99, proto.NewDebugMsg("nobody")) {
		t.Fatal("Send to unregistered id returned true")
	}
	_ = c2
}

func TestRegistryPolicyKickClosesWedgedSession(t *testing.T) {
	r := New(PolicyKick, 1)
	s, c := newRegisteredSession(t, r, 1)
	defer c.Close()

	// Queue messages without draining the client side so the outbound
	// queue depth exceeds the ceiling.
	for i := 0; i < 5; i++ {
		_ = s.Send(proto.NewPing(uint8(i)))
	}
	time.Sleep(50 * time.Millisecond) // let the queue accumulate past the ceiling

	r.Broadcast(proto.NewPing(9))

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected PolicyKick to close the wedged session")
	}
}
