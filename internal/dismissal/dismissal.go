// Package dismissal tracks which quests a viewer has chosen to hide.
//
// Dismissals are client-local: they are stored per viewer device, grow
// monotonically, and never affect what any other viewer sees. The store is
// an injected capability so callers decide durability (bbolt file on a
// device, memory in tests).
package dismissal

import (
	"context"
	"strings"
)

// Store persists dismissal sets keyed by viewer.
type Store interface {
	// Add records that the viewer dismissed the quest. Adding twice is a
	// no-op; there is no removal.
	Add(ctx context.Context, viewerID, questID string) error
	// List returns every quest id the viewer has dismissed.
	List(ctx context.Context, viewerID string) ([]string, error)
}

// Set is a loaded snapshot of one viewer's dismissals. It satisfies the
// visibility filter's Dismissals contract.
type Set map[string]struct{}

// Contains reports whether the quest id is dismissed.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Load reads the viewer's dismissal set from the store.
func Load(ctx context.Context, store Store, viewerID string) (Set, error) {
	set := Set{}
	if store == nil || strings.TrimSpace(viewerID) == "" {
		return set, nil
	}
	ids, err := store.List(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
