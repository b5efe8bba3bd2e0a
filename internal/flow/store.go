package flow

import (
	"sync"
	"time"
)

// Store maps user identifiers to their live session. The dispatcher is the
// only component that reads or writes it.
type Store interface {
	Get(userID string) (Session, bool)
	Put(userID string, session Session)
	Delete(userID string)
}

// MemoryStore is a process-local Store. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// MemoryStoreOption customizes a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithTTL expires sessions that have not been touched for ttl. Zero keeps
// sessions until their flow completes.
func WithTTL(ttl time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithStoreClock overrides the clock used for TTL bookkeeping.
func WithStoreClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the user's session. Expired sessions are dropped.
func (s *MemoryStore) Get(userID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	if s.expired(session, s.now()) {
		delete(s.sessions, userID)
		return Session{}, false
	}
	return session.clone(), true
}

// Put replaces whatever session the user had.
func (s *MemoryStore) Put(userID string, session Session) {
	if !session.Active() {
		s.Delete(userID)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session = session.clone()
	session.UpdatedAt = s.now()
	s.sessions[userID] = session
}

// Delete removes the user's session, if any.
func (s *MemoryStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len returns the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed. It is
// a no-op without a TTL.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for userID, session := range s.sessions {
		if s.expired(session, now) {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) expired(session Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(session.UpdatedAt) > s.ttl
}
