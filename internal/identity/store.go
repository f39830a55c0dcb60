package identity

import "context"

// Store persists identity summaries. Upsert keeps FirstSeen from the
// existing row and advances LastSeen.
type Store interface {
	Upsert(ctx context.Context, summary Summary) error
	Find(ctx context.Context, token Token) (*Summary, error)
}
