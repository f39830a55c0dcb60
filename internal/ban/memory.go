package ban

import (
	"context"
	"sync"

	"headcount/internal/identity"
	id "headcount/pkg/domain"
	"headcount/pkg/platform/sentinel"
	"headcount/pkg/requestcontext"
)

// InMemory is a map-backed Store for unit tests.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.BanID]*Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.BanID]*Record)}
}

func (s *InMemory) Create(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, banID id.BanID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[banID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *InMemory) FindActive(ctx context.Context, businessID id.BusinessID, token identity.Token) ([]Record, error) {
	now := requestcontext.Now(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []Record
	for _, record := range s.records {
		if record.BusinessID == businessID && record.IdentityToken == token && record.ActiveAt(now) {
			active = append(active, *record)
		}
	}
	return active, nil
}

func (s *InMemory) Update(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}
