package occupancy

import (
	"context"
	"time"

	id "headcount/pkg/domain"
)

// Store persists the occupancy ledger and snapshots. Operations that pair a
// ledger append with a snapshot change are atomic per area inside the
// store: concurrent calls for the same area serialize, and both effects
// land together or not at all. Across different areas there is no ordering
// requirement.
type Store interface {
	// ApplyDelta appends one ledger event and updates (or lazily creates)
	// the area's snapshot as max(0, current + delta). The event is appended
	// even when the clamp leaves occupancy unchanged.
	ApplyDelta(ctx context.Context, in ApplyInput) (ApplyResult, error)

	// GetSnapshot returns the area's snapshot, or sentinel.ErrNotFound when
	// no event has ever touched the area.
	GetSnapshot(ctx context.Context, areaID id.AreaID) (*Snapshot, error)

	// SetAbsolute moves the area to exactly target by appending a computed
	// relative delta; the read-compute-append runs under the area's
	// serialization so a concurrent delta cannot slip between read and write.
	// No event is appended when the area is already at target.
	SetAbsolute(ctx context.Context, in ApplyInput, target int) (ApplyResult, bool, error)

	// ResetArea zeroes the area via a compensating negative delta with
	// event type reset. Returns the occupancy that was cleared; an area
	// already at zero appends nothing.
	ResetArea(ctx context.Context, in ApplyInput) (cleared int, err error)

	// RebuildSnapshot replays the area's full ledger from zero, clamping at
	// each step, and overwrites the snapshot with the result. The recovery
	// path when a snapshot is suspected of drifting from the ledger.
	RebuildSnapshot(ctx context.Context, areaID id.AreaID) (int, error)

	// AreasForVenue and AreasForBusiness list areas that have snapshots.
	// Areas with no events have nothing to reset or report.
	AreasForVenue(ctx context.Context, venueID id.VenueID) ([]id.AreaID, error)
	AreasForBusiness(ctx context.Context, businessID id.BusinessID) ([]id.AreaID, error)

	// EventsForArea returns the area's ledger in application order.
	EventsForArea(ctx context.Context, areaID id.AreaID) ([]Event, error)

	// EventsForRange returns a business's events in [start, end), ordered
	// by timestamp with event sequence as the deterministic tie-break.
	EventsForRange(ctx context.Context, businessID id.BusinessID, start, end time.Time) ([]Event, error)
}
