package memory

import (
	"context"
	"sync"

	id "headcount/pkg/domain"
	audit "headcount/pkg/platform/audit"
)

// InMemoryStore keeps audit events in memory, grouped by business.
// Used by unit tests and embedded deployments without Postgres.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.BusinessID][]audit.Event
	order  []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.BusinessID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.BusinessID][]audit.Event)
	s.order = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.BusinessID] = append(s.events[event.BusinessID], event)
	s.order = append(s.order, event)
	return nil
}

func (s *InMemoryStore) ListByBusiness(_ context.Context, businessID id.BusinessID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[businessID]...), nil
}

// ListRecent returns the most recent N events across all businesses.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.order) - limit
	if start < 0 {
		start = 0
	}
	return append([]audit.Event{}, s.order[start:]...), nil
}
