// Package audit captures key domain actions as structured events: every
// scan decision, ban change, and administrative occupancy operation leaves
// a trail that compliance and operations can query independently of the
// domain ledgers.
package audit

import (
	"context"
	"time"

	id "headcount/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: ban creation/revocation, denied admissions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: repeated denied scans, resets outside opening hours.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: accepted scans, manual count adjustments, rebuilds.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	BusinessID id.BusinessID
	UserID     id.UserID
	// Subject names the entity acted on (a scan ID, ban ID, or area ID).
	Subject  string
	Action   string
	Decision string
	Reason   string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
	// SubjectToken is the salted identity token of the scanned document,
	// when the event concerns one. Never a raw ID number.
	SubjectToken string
}

type AuditEvent string

const (
	// Scan events
	EventScanAccepted AuditEvent = "scan_accepted"
	EventScanDenied   AuditEvent = "scan_denied"

	// Ban events
	EventBanCreated AuditEvent = "ban_created"
	EventBanRevoked AuditEvent = "ban_revoked"

	// Occupancy events
	EventOccupancyReset    AuditEvent = "occupancy_reset"
	EventOccupancyAdjusted AuditEvent = "occupancy_adjusted"
	EventSnapshotRebuilt   AuditEvent = "snapshot_rebuilt"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventScanAccepted:      CategoryOperations,
	EventScanDenied:        CategoryCompliance,
	EventBanCreated:        CategoryCompliance,
	EventBanRevoked:        CategoryCompliance,
	EventOccupancyReset:    CategorySecurity,
	EventOccupancyAdjusted: CategoryOperations,
	EventSnapshotRebuilt:   CategoryOperations,
}

// Category returns the category for this event type, defaulting to
// operations for unknown actions.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByBusiness(ctx context.Context, businessID id.BusinessID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Emitter is the narrow interface domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
