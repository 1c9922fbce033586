package refpack

import (
	"context"
	"slices"
	"sync"
)

// MemStore is an in-memory [Store] for tests and single-process runs
// without a database.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string][]EntityReference
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string][]EntityReference)}
}

// SaveSession replaces the stored references for a session.
func (s *MemStore) SaveSession(_ context.Context, sessionID string, refs []EntityReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = slices.Clone(refs)
	return nil
}

// LoadSession returns the stored references for a session.
func (s *MemStore) LoadSession(_ context.Context, sessionID string) ([]EntityReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sessions[sessionID]), nil
}

// Sessions lists stored session IDs in sorted order.
func (s *MemStore) Sessions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
