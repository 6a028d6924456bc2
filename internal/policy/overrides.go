package policy

import (
	"context"
	"sync"

	"veil/internal/domain"
)

// Override pins a masking level for one (entity type, role) pair, bypassing
// the scored level. EntityType "*" matches any entity for the role.
type Override struct {
	EntityType domain.EntityType
	Role       domain.Role
	Level      domain.MaskingLevel
}

// OverrideStore resolves explicit level overrides. Lookups prefer an exact
// entity match and fall back to the role's wildcard entry.
type OverrideStore interface {
	Lookup(ctx context.Context, entity domain.EntityType, role domain.Role) (Override, bool, error)
	Upsert(ctx context.Context, override Override) error
	List(ctx context.Context) ([]Override, error)
}

type overrideKey struct {
	entity domain.EntityType
	role   domain.Role
}

// InMemoryOverrideStore keeps overrides in a mutex-guarded map. Overrides
// are few and read-heavy, so this also serves small production deployments.
type InMemoryOverrideStore struct {
	mu        sync.RWMutex
	overrides map[overrideKey]Override
}

func NewInMemoryOverrideStore(seed ...Override) *InMemoryOverrideStore {
	s := &InMemoryOverrideStore{overrides: make(map[overrideKey]Override)}
	for _, o := range seed {
		s.overrides[overrideKey{o.EntityType, o.Role}] = o
	}
	return s
}

func (s *InMemoryOverrideStore) Lookup(_ context.Context, entity domain.EntityType, role domain.Role) (Override, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.overrides[overrideKey{entity, role}]; ok {
		return o, true, nil
	}
	if o, ok := s.overrides[overrideKey{"*", role}]; ok {
		return o, true, nil
	}
	return Override{}, false, nil
}

func (s *InMemoryOverrideStore) Upsert(_ context.Context, override Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[overrideKey{override.EntityType, override.Role}] = override
	return nil
}

func (s *InMemoryOverrideStore) List(_ context.Context) ([]Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Override, 0, len(s.overrides))
	for _, o := range s.overrides {
		out = append(out, o)
	}
	return out, nil
}
