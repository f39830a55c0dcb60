// Package policy holds per-business admission settings consumed by the scan
// pipeline: the minimum admission age and whether an accepted scan
// automatically increments the area's occupancy.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	id "headcount/pkg/domain"
	"headcount/pkg/platform/sentinel"
)

// DefaultMinAge applies when a business has no stored policy.
const DefaultMinAge = 21

// Policy is one business's admission configuration.
type Policy struct {
	BusinessID    id.BusinessID
	MinAge        int
	AutoIncrement bool
	UpdatedAt     time.Time
}

// Default returns the policy used for businesses without a stored row.
func Default(businessID id.BusinessID) Policy {
	return Policy{BusinessID: businessID, MinAge: DefaultMinAge, AutoIncrement: true}
}

// Store persists business policies.
type Store interface {
	Find(ctx context.Context, businessID id.BusinessID) (*Policy, error)
	Save(ctx context.Context, p Policy) error
}

// Service resolves a business's effective policy, falling back to defaults
// when none is stored.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Effective(ctx context.Context, businessID id.BusinessID) (Policy, error) {
	p, err := s.store.Find(ctx, businessID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Default(businessID), nil
		}
		return Policy{}, fmt.Errorf("load business policy: %w", err)
	}
	return *p, nil
}

func (s *Service) Save(ctx context.Context, p Policy) error {
	if p.MinAge <= 0 {
		p.MinAge = DefaultMinAge
	}
	return s.store.Save(ctx, p)
}
