// Package rtc implements the RTC Session Registry: short-lived
// multi-participant rooms with a monotonic UID counter under contention and
// a hard participant cap of 8.
package rtc

import (
	"context"
	"sync"
	"time"

	"github.com/huang-relay/pairrelay/internal/v1/coreerr"
)

const maxParticipants = 8
const sessionTTL = 4 * time.Hour
const firstUID = uint32(1000)

// Participant is one joined member of an RTC session.
type Participant struct {
	UID         uint32
	DisplayName string
	JoinedAt    time.Time
}

// Session is an immutable snapshot of an RTC session.
type Session struct {
	ID           string
	AppID        string
	Channel      string
	Token        string
	HostUID      uint32
	CreatedAt    time.Time
	ExpiresAt    time.Time
	Participants []Participant
}

// JoinInfo is returned to a newly joined participant: the channel
// credentials plus the uid assigned to them.
type JoinInfo struct {
	AppID   string
	Channel string
	Token   string
	UID     uint32
	Name    string
}

type record struct {
	mu sync.Mutex

	id        string
	appID     string
	channel   string
	token     string
	hostUID   uint32
	createdAt time.Time
	expiresAt time.Time

	uidCounter   uint32
	participants []Participant
}

func (r *record) snapshot() Session {
	participants := make([]Participant, len(r.participants))
	copy(participants, r.participants)
	return Session{
		ID:           r.id,
		AppID:        r.appID,
		Channel:      r.channel,
		Token:        r.token,
		HostUID:      r.hostUID,
		CreatedAt:    r.createdAt,
		ExpiresAt:    r.expiresAt,
		Participants: participants,
	}
}

// Store is the RTC Session Registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*record
}

// NewStore builds an empty RTC Session Registry.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*record)}
}

// Create inserts a new session with the given id, already-allocated by the
// caller (idgen.NewUUID), and an empty participant list.
func (s *Store) Create(id, appID, channel, token string, hostUID uint32) Session {
	now := time.Now()
	r := &record{
		id:         id,
		appID:      appID,
		channel:    channel,
		token:      token,
		hostUID:    hostUID,
		createdAt:  now,
		expiresAt:  now.Add(sessionTTL),
		uidCounter: firstUID,
	}

	s.mu.Lock()
	s.sessions[id] = r
	s.mu.Unlock()

	return r.snapshot()
}

// Get returns a snapshot of the session.
func (s *Store) Get(id string) (Session, error) {
	r := s.lookup(id)
	if r == nil {
		return Session{}, coreerr.NotFound("rtc session %q not found", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

// Join appends a participant if the session has room, assigning it the next
// uid off the counter. The cap check and the counter increment happen in
// the same critical section so a burst of N concurrent joins yields exactly
// min(N, 8-current) successes.
func (s *Store) Join(id, name string) (JoinInfo, error) {
	r := s.lookup(id)
	if r == nil {
		return JoinInfo{}, coreerr.NotFound("rtc session %q not found", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.participants) >= maxParticipants {
		return JoinInfo{}, coreerr.Conflict("rtc session %q is full", id)
	}

	uid := r.uidCounter
	r.uidCounter++
	r.participants = append(r.participants, Participant{
		UID:         uid,
		DisplayName: name,
		JoinedAt:    time.Now(),
	})

	return JoinInfo{
		AppID:   r.appID,
		Channel: r.channel,
		Token:   r.token,
		UID:     uid,
		Name:    name,
	}, nil
}

// Delete removes a session, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *Store) lookup(id string) *record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// CleanupExpired removes sessions whose expiry has passed. It snapshots
// candidates under a read lock, then takes the write lock only to remove
// them, so the sweep never holds the top-level write lock while checking
// individual entries.
func (s *Store) CleanupExpired() int {
	now := time.Now()

	s.mu.RLock()
	stale := make([]string, 0)
	for id, r := range s.sessions {
		r.mu.Lock()
		expired := now.After(r.expiresAt)
		r.mu.Unlock()
		if expired {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	if len(stale) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, id := range stale {
		if r, ok := s.sessions[id]; ok {
			r.mu.Lock()
			stillExpired := now.After(r.expiresAt)
			r.mu.Unlock()
			if stillExpired {
				delete(s.sessions, id)
				removed++
			}
		}
	}
	return removed
}

// Count returns the current number of sessions held in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunJanitor sweeps expired sessions every interval until ctx is canceled.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupExpired()
		}
	}
}
