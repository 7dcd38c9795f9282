package relation

import (
	"context"
	"sync"
)

// StaticLookup serves one relationship kind from an in-memory table.
// Useful for modules that maintain their link sets in process, and as a
// stand-in while a module's real lookup is being wired up.
type StaticLookup struct {
	kind string

	mu      sync.RWMutex
	entries map[Anchor]map[int64][]EntityRef
}

// NewStaticLookup creates an empty lookup for the given kind.
func NewStaticLookup(kind string) *StaticLookup {
	return &StaticLookup{
		kind:    kind,
		entries: make(map[Anchor]map[int64][]EntityRef),
	}
}

// Kind implements Lookup.
func (s *StaticLookup) Kind() string { return s.kind }

// Add links entities to an anchor. Repeated calls append.
func (s *StaticLookup) Add(anchor Anchor, id int64, refs ...EntityRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries[anchor] == nil {
		s.entries[anchor] = make(map[int64][]EntityRef)
	}
	s.entries[anchor][id] = append(s.entries[anchor][id], refs...)
}

// Remove drops all links for an anchor.
func (s *StaticLookup) Remove(anchor Anchor, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byID, ok := s.entries[anchor]; ok {
		delete(byID, id)
	}
}

// Related implements Lookup.
func (s *StaticLookup) Related(_ context.Context, anchor Anchor, id int64) ([]EntityRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := s.entries[anchor][id]
	out := make([]EntityRef, len(refs))
	copy(out, refs)
	return out, nil
}
