// Package events records which provider webhook events were already handled
// so retried deliveries are dispatched once.
package events

import (
	"context"
	"sync"
	"time"
)

// ProviderWhatsApp is the provider key for WhatsApp message ids.
const ProviderWhatsApp = "whatsapp"

// DefaultRetention is how long processed ids are remembered by the stores
// that expire entries. Meta stops retrying after about a day.
const DefaultRetention = 72 * time.Hour

// Deduper marks an event processed. MarkProcessed reports false when the
// event had already been marked.
type Deduper interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// Noop accepts every event.
type Noop struct{}

func (Noop) MarkProcessed(context.Context, string, string) (bool, error) { return true, nil }

// MemoryStore keeps processed ids in process memory.
type MemoryStore struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore builds an in-memory deduper. A non-positive retention
// falls back to DefaultRetention.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryStore{seen: make(map[string]time.Time), retention: retention, now: time.Now}
}

func (s *MemoryStore) MarkProcessed(_ context.Context, provider, eventID string) (bool, error) {
	key := provider + ":" + eventID
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if at, ok := s.seen[key]; ok && now.Sub(at) < s.retention {
		return false, nil
	}
	s.seen[key] = now

	// Prune expired ids every 1024 inserts.
	if len(s.seen)%1024 == 0 {
		for k, at := range s.seen {
			if now.Sub(at) >= s.retention {
				delete(s.seen, k)
			}
		}
	}
	return true, nil
}
