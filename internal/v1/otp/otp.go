// Package otp implements the OTP Session Manager: a pairing-by-one-time-
// password handshake with a bounded state machine (Pending -> Granted or
// Denied) and a 5-minute expiry.
//
// The store owns a top-level map guarded by a RWMutex; each session is
// itself guarded by its own mutex so grant/deny races on one session never
// block unrelated sessions.
package otp

import (
	"context"
	"sync"
	"time"

	"github.com/huang-relay/pairrelay/internal/v1/coreerr"
	"github.com/huang-relay/pairrelay/internal/v1/idgen"
)

// Status is the OTP session's lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
	StatusExpired Status = "expired"
)

const ttl = 5 * time.Minute

// Session is an immutable snapshot returned to callers. The stored record
// is never handed out directly; Store methods always copy under lock.
type Session struct {
	ID        string
	OTP       string
	Hostname  string
	Status    Status
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type record struct {
	mu sync.Mutex

	id        string
	otp       string
	hostname  string
	status    Status
	token     string
	createdAt time.Time
	expiresAt time.Time
}

func (r *record) snapshot() Session {
	status := r.status
	if status == StatusPending && time.Now().After(r.expiresAt) {
		status = StatusExpired
	}
	return Session{
		ID:        r.id,
		OTP:       r.otp,
		Hostname:  r.hostname,
		Status:    status,
		Token:     r.token,
		CreatedAt: r.createdAt,
		ExpiresAt: r.expiresAt,
	}
}

// Store is the OTP Session Manager.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*record
}

// NewStore builds an empty OTP Session Manager.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*record)}
}

// Create generates a fresh session for hostname and persists it.
func (s *Store) Create(hostname string) (Session, error) {
	id := idgen.NewUUID()
	code, err := idgen.NewOTP()
	if err != nil {
		return Session{}, coreerr.Internal("generate otp: %v", err)
	}

	now := time.Now()
	r := &record{
		id:        id,
		otp:       code,
		hostname:  hostname,
		status:    StatusPending,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	s.sessions[id] = r
	s.mu.Unlock()

	return r.snapshot(), nil
}

// Get returns a snapshot of the session, with Status reported as Expired
// when the stored status is still Pending past expiry. It never mutates
// the stored record.
func (s *Store) Get(id string) (Session, error) {
	r := s.lookup(id)
	if r == nil {
		return Session{}, coreerr.NotFound("otp session %q not found", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

// Grant performs the Pending -> Granted compare-and-swap. It fails with
// Conflict if the session is no longer Pending, Unauthorized if the code
// does not match, or Gone if the session has expired.
func (s *Store) Grant(id, code string) (Session, error) {
	r := s.lookup(id)
	if r == nil {
		return Session{}, coreerr.NotFound("otp session %q not found", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusPending {
		return Session{}, coreerr.Conflict("otp session %q is not pending", id)
	}
	if r.otp != code {
		return Session{}, coreerr.Unauthorized("otp does not match")
	}
	if time.Now().After(r.expiresAt) {
		return Session{}, coreerr.Gone("otp session %q has expired", id)
	}

	token, err := idgen.NewToken()
	if err != nil {
		return Session{}, coreerr.Internal("generate token: %v", err)
	}

	r.status = StatusGranted
	r.token = token

	return r.snapshot(), nil
}

// Deny performs the Pending -> Denied compare-and-swap.
func (s *Store) Deny(id string) (Session, error) {
	r := s.lookup(id)
	if r == nil {
		return Session{}, coreerr.NotFound("otp session %q not found", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusPending {
		return Session{}, coreerr.Conflict("otp session %q is not pending", id)
	}

	r.status = StatusDenied
	return r.snapshot(), nil
}

func (s *Store) lookup(id string) *record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// CleanupExpired removes Pending sessions past expiry. Granted and Denied
// sessions are retained indefinitely.
func (s *Store) CleanupExpired() int {
	now := time.Now()

	s.mu.RLock()
	stale := make([]string, 0)
	for id, r := range s.sessions {
		r.mu.Lock()
		expired := r.status == StatusPending && now.After(r.expiresAt)
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
			stillExpired := r.status == StatusPending && now.After(r.expiresAt)
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
// It is meant to run in its own goroutine for the lifetime of the process.
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
