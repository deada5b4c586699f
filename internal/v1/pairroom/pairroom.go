// Package pairroom implements the Pair-Room Relay: a WebSocket rendezvous
// between two peers, a "host" and a "client", that join a named room
// asynchronously and in either order, and a full-duplex forwarder of
// opaque text frames between them once both are present.
//
// This is deliberately not a store-and-forward mailbox: a frame received
// before the peer has connected is silently dropped.
package pairroom

import (
	"context"
	"sync"
	"time"

	"github.com/huang-relay/pairrelay/internal/v1/coreerr"
	"github.com/huang-relay/pairrelay/internal/v1/idgen"
)

// Role identifies which side of a pair room a connection is on.
type Role string

const (
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

const preConnectTTL = 10 * time.Minute

// sinkBuffer bounds the backlog a slow peer may accumulate; once its sink
// is full, further frames for it are dropped. The spec permits an implementation-chosen bound in place
// of a literally unbounded channel.
const sinkBuffer = 256

// room is one pair room. Either sink may be nil: absent because the peer
// has never connected, or cleared because it disconnected.
type room struct {
	mu sync.Mutex

	code      string
	hostname  string
	createdAt time.Time

	hostSink   chan string
	clientSink chan string
}

func (r *room) sinkFor(role Role) chan string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role == RoleHost {
		return r.hostSink
	}
	return r.clientSink
}

// setSink installs sink as the writer channel for role, replacing any
// previous sink silently (the spec's chosen behavior: the old connection's
// writer pump is not force-closed, it simply stops being fed).
func (r *room) setSink(role Role, sink chan string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role == RoleHost {
		r.hostSink = sink
	} else {
		r.clientSink = sink
	}
}

// clearSink removes sink from role's slot only if it is still the current
// one (a later reconnect may have already replaced it). It reports whether
// both sinks are now absent.
func (r *room) clearSink(role Role, sink chan string) (bothAbsent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role == RoleHost {
		if r.hostSink == sink {
			r.hostSink = nil
		}
	} else {
		if r.clientSink == sink {
			r.clientSink = nil
		}
	}
	return r.hostSink == nil && r.clientSink == nil
}

func (r *room) snapshot() (paired bool, hostname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clientSink != nil, r.hostname
}

func (r *room) eligibleForJanitorRemoval(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clientSink == nil && now.Sub(r.createdAt) > preConnectTTL
}

// Hub owns the pair room registry.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewHub builds an empty Pair-Room Relay.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

// CreatePair mints a fresh pair code and inserts an empty room for hostname.
func (h *Hub) CreatePair(hostname string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := idgen.NewPairCode()
		if err != nil {
			return "", coreerr.Internal("generate pair code: %v", err)
		}

		h.mu.Lock()
		if _, exists := h.rooms[code]; exists {
			h.mu.Unlock()
			continue
		}
		h.rooms[code] = &room{
			code:      code,
			hostname:  hostname,
			createdAt: time.Now(),
		}
		h.mu.Unlock()
		return code, nil
	}
	return "", coreerr.Internal("could not allocate a unique pair code")
}

// Status reports whether a client has joined the room and the hostname
// label it was created with.
func (h *Hub) Status(code string) (paired bool, hostname string, err error) {
	r := h.lookup(code)
	if r == nil {
		return false, "", coreerr.NotFound("pair room %q not found", code)
	}
	paired, hostname = r.snapshot()
	return paired, hostname, nil
}

func (h *Hub) lookup(code string) *room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[code]
}

func (h *Hub) removeIfEmpty(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[code]
	if !ok {
		return
	}
	r.mu.Lock()
	empty := r.hostSink == nil && r.clientSink == nil
	r.mu.Unlock()
	if empty {
		delete(h.rooms, code)
	}
}

// CleanupExpired removes rooms older than 10 minutes with no client
// currently connected. A room with a connected client is never removed
// regardless of age.
func (h *Hub) CleanupExpired() int {
	now := time.Now()

	h.mu.RLock()
	stale := make([]string, 0)
	for code, r := range h.rooms {
		if r.eligibleForJanitorRemoval(now) {
			stale = append(stale, code)
		}
	}
	h.mu.RUnlock()

	if len(stale) == 0 {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for _, code := range stale {
		if r, ok := h.rooms[code]; ok && r.eligibleForJanitorRemoval(now) {
			delete(h.rooms, code)
			removed++
		}
	}
	return removed
}

// Count returns the current number of rooms held in the hub.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// RunJanitor sweeps expired rooms every interval until ctx is canceled.
func (h *Hub) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.CleanupExpired()
		}
	}
}
