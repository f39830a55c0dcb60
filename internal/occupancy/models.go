// Package occupancy keeps a live head count per physical area. The
// append-only signed-delta event ledger is the source of truth; the per-area
// snapshot is a materialized cache that must always be re-derivable by
// replaying the ledger from zero with the same clamping rule.
package occupancy

import (
	"time"

	id "headcount/pkg/domain"
)

// EventType records what produced a delta.
type EventType string

const (
	TypeScan       EventType = "scan"
	TypeManual     EventType = "manual"
	TypeReset      EventType = "reset"
	TypeAdjustment EventType = "adjustment"
)

// Event is one ledger entry. Never updated or deleted; a reset writes a
// compensating negative delta rather than erasing history.
type Event struct {
	ID         id.EventID
	Seq        int64
	BusinessID id.BusinessID
	VenueID    id.VenueID
	AreaID     id.AreaID
	DeviceID   *id.DeviceID
	UserID     *id.UserID
	Delta      int
	Type       EventType
	CreatedAt  time.Time
}

// Snapshot is the materialized occupancy for one area. CurrentOccupancy is
// clamped at zero at every event application, not just at read time.
type Snapshot struct {
	AreaID           id.AreaID
	BusinessID       id.BusinessID
	VenueID          id.VenueID
	CurrentOccupancy int
	LastEventID      id.EventID
	UpdatedAt        time.Time
}

// ApplyInput describes one delta application.
type ApplyInput struct {
	BusinessID id.BusinessID
	VenueID    id.VenueID
	AreaID     id.AreaID
	DeviceID   *id.DeviceID
	UserID     *id.UserID
	Delta      int
	Type       EventType
}

// ApplyResult reports the appended event and the occupancy after it, so
// callers can reconcile.
type ApplyResult struct {
	EventID          id.EventID
	CurrentOccupancy int
}

// ResetScope selects which areas a reset covers.
type ResetScope string

const (
	ScopeArea     ResetScope = "AREA"
	ScopeVenue    ResetScope = "VENUE"
	ScopeBusiness ResetScope = "BUSINESS"
)

// AreaResetResult is the per-area outcome of a reset. Failures are reported
// individually; one area's failure never aborts the others.
type AreaResetResult struct {
	AreaID  id.AreaID
	Success bool
	Error   string
}
