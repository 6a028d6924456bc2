package history

import (
	"context"
	"sync"
	"time"

	"veil/internal/domain"
)

type memoryKey struct {
	requesterID string
	entityType  domain.EntityType
}

// keyLog holds one requester+entity-type stream. Each stream carries its own
// lock so concurrent decisions for different requesters never contend, while
// two racing decisions for the same key serialize on append.
type keyLog struct {
	mu      sync.RWMutex
	records []Record
}

// InMemoryStore is the reference Store implementation, used in tests and
// single-process deployments. It favors clarity over performance.
type InMemoryStore struct {
	mu   sync.RWMutex
	logs map[memoryKey]*keyLog
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{logs: make(map[memoryKey]*keyLog)}
}

func (s *InMemoryStore) log(key memoryKey) *keyLog {
	s.mu.RLock()
	l, ok := s.logs[key]
	s.mu.RUnlock()
	if ok {
		return l
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.logs[key]; ok {
		return l
	}
	l = &keyLog{}
	s.logs[key] = l
	return l
}

func (s *InMemoryStore) Append(_ context.Context, record Record) error {
	l := s.log(memoryKey{record.RequesterID, record.EntityType})
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

func (s *InMemoryStore) QueryWindow(_ context.Context, requesterID string, entityType domain.EntityType, window time.Duration) (Stats, error) {
	l := s.log(memoryKey{requesterID, entityType})
	cutoff := time.Now().Add(-window)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var stats Stats
	for _, r := range l.records {
		stats.TotalCount++
		if r.Violation {
			stats.TotalViolations++
		}
		if !r.CreatedAt.Before(cutoff) {
			stats.WindowCount++
			if r.Violation {
				stats.WindowViolations++
			}
		}
	}
	return stats, nil
}

// ListByRequester returns a copy of every record for one requester across all
// entity types, newest last. Auditor-facing; not on the decision path.
func (s *InMemoryStore) ListByRequester(_ context.Context, requesterID string) ([]Record, error) {
	s.mu.RLock()
	keys := make([]memoryKey, 0, len(s.logs))
	for key := range s.logs {
		if key.requesterID == requesterID {
			keys = append(keys, key)
		}
	}
	s.mu.RUnlock()

	var out []Record
	for _, key := range keys {
		l := s.log(key)
		l.mu.RLock()
		out = append(out, l.records...)
		l.mu.RUnlock()
	}
	return out, nil
}
