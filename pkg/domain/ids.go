// Package domain provides typed identifiers shared across modules.
//
// Each identifier is a distinct type over uuid.UUID so the compiler rejects
// cross-type assignment (an AreaID can never be passed where a VenueID is
// expected). Parse functions enforce the invariant that identifiers are
// valid, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "headcount/pkg/domain-errors"
)

type (
	// BusinessID identifies a business (an operator owning one or more venues).
	BusinessID uuid.UUID
	// VenueID identifies a single physical venue of a business.
	VenueID uuid.UUID
	// AreaID identifies a physical area within a venue; occupancy is
	// accounted per area.
	AreaID uuid.UUID
	// DeviceID identifies a scanner or counter device.
	DeviceID uuid.UUID
	// UserID identifies the staff member operating a device.
	UserID uuid.UUID
	// BanID identifies a ban record.
	BanID uuid.UUID
	// ScanID identifies a scan ledger entry.
	ScanID uuid.UUID
	// EventID identifies an occupancy ledger entry.
	EventID uuid.UUID
)

func parseUUID(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return parsed, nil
}

func ParseBusinessID(raw string) (BusinessID, error) {
	parsed, err := parseUUID(raw, "business_id")
	return BusinessID(parsed), err
}

func ParseVenueID(raw string) (VenueID, error) {
	parsed, err := parseUUID(raw, "venue_id")
	return VenueID(parsed), err
}

func ParseAreaID(raw string) (AreaID, error) {
	parsed, err := parseUUID(raw, "area_id")
	return AreaID(parsed), err
}

func ParseDeviceID(raw string) (DeviceID, error) {
	parsed, err := parseUUID(raw, "device_id")
	return DeviceID(parsed), err
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user_id")
	return UserID(parsed), err
}

func ParseBanID(raw string) (BanID, error) {
	parsed, err := parseUUID(raw, "ban_id")
	return BanID(parsed), err
}

func ParseScanID(raw string) (ScanID, error) {
	parsed, err := parseUUID(raw, "scan_id")
	return ScanID(parsed), err
}

func ParseEventID(raw string) (EventID, error) {
	parsed, err := parseUUID(raw, "event_id")
	return EventID(parsed), err
}

func (id BusinessID) String() string { return uuid.UUID(id).String() }
func (id VenueID) String() string    { return uuid.UUID(id).String() }
func (id AreaID) String() string     { return uuid.UUID(id).String() }
func (id DeviceID) String() string   { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id BanID) String() string      { return uuid.UUID(id).String() }
func (id ScanID) String() string     { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }

func (id BusinessID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id VenueID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AreaID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DeviceID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id BanID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ScanID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
