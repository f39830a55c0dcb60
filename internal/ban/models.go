// Package ban stores and evaluates admission prohibitions. A ban scopes to
// one venue or, with a null venue, to every venue of the business. Records
// are deactivated on revoke, never deleted, so the audit trail survives.
package ban

import (
	"time"

	"headcount/internal/identity"
	id "headcount/pkg/domain"
)

// Common reason codes. ReasonCode is free-form; these are the ones the
// entry devices offer by default.
const (
	ReasonFighting     = "FIGHTING"
	ReasonFakeDocument = "FAKE_DOCUMENT"
	ReasonIntoxication = "INTOXICATION"
	ReasonTheft        = "THEFT"
	ReasonOther        = "OTHER"
)

// Scope selects how widely a ban applies.
type Scope string

const (
	ScopeBusiness Scope = "BUSINESS"
	ScopeVenue    Scope = "VENUE"
)

// Record is one prohibition. VenueID nil means business-wide; EndAt nil
// means permanent.
type Record struct {
	ID            id.BanID
	BusinessID    id.BusinessID
	VenueID       *id.VenueID
	IdentityToken identity.Token
	ReasonCode    string
	Notes         string
	CreatedAt     time.Time
	EndAt         *time.Time
	Active        bool
	RevokedAt     *time.Time
}

// ActiveAt reports whether the ban is in force at the given instant:
// not revoked and not past its end time.
func (r *Record) ActiveAt(now time.Time) bool {
	return r.Active && (r.EndAt == nil || r.EndAt.After(now))
}

// BusinessWide reports whether the ban applies at every venue of the business.
func (r *Record) BusinessWide() bool {
	return r.VenueID == nil
}

// Match is the result of evaluating a set of active bans against a venue.
// Either flag denies admission; they are not mutually exclusive.
type Match struct {
	BusinessWide  bool
	VenueSpecific bool
	Record        *Record
}

// Banned reports whether any matching ban denies admission.
func (m Match) Banned() bool {
	return m.BusinessWide || m.VenueSpecific
}

// Evaluate checks active bans against a venue. Both the business-wide and
// venue-specific conditions are evaluated; the first matching record is
// reported for operator context, with no precedence beyond encounter order.
func Evaluate(bans []Record, venueID id.VenueID) Match {
	var match Match
	for i := range bans {
		b := &bans[i]
		switch {
		case b.BusinessWide():
			match.BusinessWide = true
		case *b.VenueID == venueID:
			match.VenueSpecific = true
		default:
			continue
		}
		if match.Record == nil {
			match.Record = b
		}
	}
	return match
}
