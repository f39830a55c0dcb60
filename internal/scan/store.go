package scan

import (
	"context"

	"headcount/internal/identity"
	id "headcount/pkg/domain"
)

// Store persists the scan ledger. Rows are append-only; there is no update
// or delete.
type Store interface {
	Append(ctx context.Context, event *Event) error
	FindByID(ctx context.Context, scanID id.ScanID) (*Event, error)
	// IdentityToken resolves the token behind a prior scan, for bans created
	// from a scan. Returns sentinel.ErrNotFound for unknown scans.
	IdentityToken(ctx context.Context, scanID id.ScanID) (identity.Token, error)
	ListByBusiness(ctx context.Context, businessID id.BusinessID, limit int) ([]Event, error)
}
