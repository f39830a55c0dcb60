package ban

import (
	"context"

	"headcount/internal/identity"
	id "headcount/pkg/domain"
)

// Store persists ban records. FindActive evaluates the "currently active"
// rule (active flag set, end time null or in the future) against the
// request-scoped clock.
type Store interface {
	Create(ctx context.Context, record *Record) error
	FindByID(ctx context.Context, banID id.BanID) (*Record, error)
	FindActive(ctx context.Context, businessID id.BusinessID, token identity.Token) ([]Record, error)
	Update(ctx context.Context, record *Record) error
}
