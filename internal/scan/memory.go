package scan

import (
	"context"
	"sync"

	"headcount/internal/identity"
	id "headcount/pkg/domain"
	"headcount/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded Store for unit tests and embedded use.
type InMemory struct {
	mu     sync.RWMutex
	events []Event
	byID   map[id.ScanID]Event
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[id.ScanID]Event)}
}

func (s *InMemory) Append(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	s.byID[event.ID] = *event
	return nil
}

func (s *InMemory) FindByID(_ context.Context, scanID id.ScanID) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.byID[scanID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &event, nil
}

func (s *InMemory) IdentityToken(ctx context.Context, scanID id.ScanID) (identity.Token, error) {
	event, err := s.FindByID(ctx, scanID)
	if err != nil {
		return "", err
	}
	return event.IdentityToken, nil
}

func (s *InMemory) ListByBusiness(_ context.Context, businessID id.BusinessID, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []Event
	for i := len(s.events) - 1; i >= 0 && (limit <= 0 || len(events) < limit); i-- {
		if s.events[i].BusinessID == businessID {
			events = append(events, s.events[i])
		}
	}
	return events, nil
}
