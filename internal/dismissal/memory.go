package dismissal

import (
	"context"
	"sync"
)

// MemoryStore keeps dismissal sets in memory. It backs tests and callers
// that do not need durability across restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	viewers map[string]map[string]struct{}
}

// NewMemoryStore returns an empty in-memory dismissal store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{viewers: make(map[string]map[string]struct{})}
}

// Add records a dismissal for the viewer.
func (s *MemoryStore) Add(ctx context.Context, viewerID, questID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.viewers[viewerID]
	if !ok {
		set = make(map[string]struct{})
		s.viewers[viewerID] = set
	}
	set[questID] = struct{}{}
	return nil
}

// List returns the viewer's dismissed quest ids.
func (s *MemoryStore) List(ctx context.Context, viewerID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.viewers[viewerID]))
	for id := range s.viewers[viewerID] {
		ids = append(ids, id)
	}
	return ids, nil
}
