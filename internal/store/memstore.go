package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pytorch/alerting-infra/internal/alerterr"
	"github.com/pytorch/alerting-infra/internal/database"
)

// MemStore is an in-memory Store with the same conditional-write
// semantics as GormStore. Used by tests and local development.
type MemStore struct {
	mu     sync.Mutex
	states map[string]database.AlertState
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{states: make(map[string]database.AlertState)}
}

// Load returns a copy of the state for a fingerprint, or (nil, nil).
func (s *MemStore) Load(ctx context.Context, fingerprint string) (*database.AlertState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[fingerprint]
	if !ok {
		return nil, nil
	}
	cp := st
	return &cp, nil
}

// Save applies the conditional-write contract.
func (s *MemStore) Save(ctx context.Context, st *database.AlertState, expectedVersion *uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.states[st.Fingerprint]
	now := time.Now().UTC()

	if expectedVersion == nil {
		if exists {
			return alerterr.Conflict("state already exists for fingerprint")
		}
		st.Version = 0
		st.CreatedAt = now
		st.UpdatedAt = now
		s.states[st.Fingerprint] = *st
		return nil
	}

	if !exists || existing.Version != *expectedVersion {
		return alerterr.Conflict("state version advanced by another writer")
	}
	st.Version = *expectedVersion + 1
	st.CreatedAt = existing.CreatedAt
	st.UpdatedAt = now
	s.states[st.Fingerprint] = *st
	return nil
}

// List returns up to limit records, most recently updated first.
func (s *MemStore) List(ctx context.Context, limit int) ([]database.AlertState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]database.AlertState, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].UpdatedAt.After(states[j].UpdatedAt)
	})
	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}
	return states, nil
}
