package identity

import (
	"context"
	"sync"

	"headcount/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for unit tests.
type InMemory struct {
	mu        sync.RWMutex
	summaries map[Token]Summary
}

func NewInMemory() *InMemory {
	return &InMemory{summaries: make(map[Token]Summary)}
}

func (s *InMemory) Upsert(_ context.Context, summary Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.summaries[summary.Token]; ok {
		summary.FirstSeen = existing.FirstSeen
	}
	s.summaries[summary.Token] = summary
	return nil
}

func (s *InMemory) Find(_ context.Context, token Token) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &summary, nil
}
