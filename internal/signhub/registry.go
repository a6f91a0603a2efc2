// Package signhub tracks connected sign sessions and fans out broadcast
// messages to all of them. It is adapted from the teacher's internal/hub,
// generalized from CAN-frame broadcast to proto.Message broadcast, and
// from a bounded per-client channel to the unbounded per-session queue
// internal/session already provides (SPEC_FULL §10.5).
package signhub

import (
	"sync"
	"time"

	"github.com/nextbus/signd/internal/logging"
	"github.com/nextbus/signd/internal/metrics"
	"github.com/nextbus/signd/internal/proto"
	"github.com/nextbus/signd/internal/session"
)

// BackpressurePolicy controls what happens to a session whose outbound
// queue has grown past OverflowCeiling — a sign can't accept messages any
// faster than its writer goroutine can drain them, and a wedged writer
// (blocked socket write) would otherwise let the queue grow forever since
// a Session's own queue is unbounded by design (§4.2.3).
type BackpressurePolicy int

const (
	PolicyDrop BackpressurePolicy = iota
	PolicyKick
)

// Client wraps a registered session with the bookkeeping the registry
// needs for Snapshot/listing.
type Client struct {
	Sess        *session.Session
	ID          uint64
	ConnectedAt time.Time
}

// Registry is the process-wide table of connected sign sessions.
type Registry struct {
	mu       sync.RWMutex
	clients  map[uint64]*Client
	Policy   BackpressurePolicy
	// OverflowCeiling is the per-session outbound queue depth above which
	// PolicyKick or PolicyDrop takes effect on a Broadcast. Zero disables
	// the ceiling check (never kick/drop based on depth).
	OverflowCeiling int
}

// New creates an empty Registry with the given backpressure policy.
func New(policy BackpressurePolicy, overflowCeiling int) *Registry {
	return &Registry{
		clients:         make(map[uint64]*Client),
		Policy:          policy,
		OverflowCeiling: overflowCeiling,
	}
}

// Add registers a session, keyed by its ID.
func (r *Registry) Add(sess *session.Session) *Client {
	c := &Client{Sess: sess, ID: sess.ID, ConnectedAt: time.Now()}
	r.mu.Lock()
	prev := len(r.clients)
	r.clients[sess.ID] = c
	cur := len(r.clients)
	r.mu.Unlock()
	metrics.SetRegistryActiveClients(cur)
	if prev == 0 && cur == 1 {
		logging.L().Info("signs_first_connected")
	}
	return c
}

// Remove unregisters a session; safe to call multiple times.
func (r *Registry) Remove(sess *session.Session) {
	r.mu.Lock()
	_, existed := r.clients[sess.ID]
	if existed {
		delete(r.clients, sess.ID)
	}
	cur := len(r.clients)
	r.mu.Unlock()
	metrics.SetRegistryActiveClients(cur)
	if existed && cur == 0 {
		logging.L().Info("signs_last_disconnected")
	}
}

// Broadcast sends m to every registered session, honoring the
// backpressure policy for any session whose queue has backed up past
// OverflowCeiling (a wedged writer, not ordinary slow-consumer
// backpressure — ordinary sends never block or drop, §4.2.3).
func (r *Registry) Broadcast(m proto.Message) {
	clients := r.Snapshot()
	for _, c := range clients {
		if r.OverflowCeiling > 0 && c.Sess.OutboundDepth() > r.OverflowCeiling {
			switch r.Policy {
			case PolicyKick:
				metrics.IncRegistryKicked()
				c.Sess.Close()
			default:
				metrics.IncRegistryDropped()
			}
			continue
		}
		if err := c.Sess.Send(m); err != nil {
			metrics.IncRegistryDropped()
		}
	}
}

// Send delivers m to a single registered session by ID, returning false
// if no such session is registered.
func (r *Registry) Send(id uint64, m proto.Message) bool {
	r.mu.RLock()
	c, ok := r.clients[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return c.Sess.Send(m) == nil
}

// Snapshot returns a slice copy of currently registered clients.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()
	return clients
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.clients)
	r.mu.RUnlock()
	return n
}
