package policy

import (
	"context"
	"sync"

	id "headcount/pkg/domain"
	"headcount/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for unit tests.
type InMemory struct {
	mu       sync.RWMutex
	policies map[id.BusinessID]Policy
}

func NewInMemory() *InMemory {
	return &InMemory{policies: make(map[id.BusinessID]Policy)}
}

func (s *InMemory) Find(_ context.Context, businessID id.BusinessID) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[businessID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemory) Save(_ context.Context, p Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.BusinessID] = p
	return nil
}
