package audit

import (
	"context"
	"sync"
)

// InMemoryStore is the reference Sink used in tests and single-process
// deployments. Append-only: events are never mutated or removed.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListRecent returns up to limit of the newest events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.events) - limit
	if limit <= 0 || start < 0 {
		start = 0
	}
	return append([]Event{}, s.events[start:]...), nil
}

// ListByRequester returns all events for one requester, oldest first.
func (s *InMemoryStore) ListByRequester(_ context.Context, requesterID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.RequesterID == requesterID {
			out = append(out, e)
		}
	}
	return out, nil
}
