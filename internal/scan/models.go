// Package scan implements the admission pipeline: parse a raw document
// payload, derive the identity token, evaluate bans and business policy, and
// record the decision in the scan ledger.
package scan

import (
	"time"

	"headcount/internal/identity"
	id "headcount/pkg/domain"
)

// Outcome is the terminal result of one scan. There are no retries at this
// layer; every scan resolves to exactly one outcome.
type Outcome string

const (
	OutcomeAccepted Outcome = "ACCEPTED"
	OutcomeDenied   Outcome = "DENIED"
)

// DenialReason explains a denied scan.
type DenialReason string

const (
	ReasonUnderage      DenialReason = "UNDERAGE"
	ReasonExpired       DenialReason = "EXPIRED"
	ReasonBanned        DenialReason = "BANNED"
	ReasonInvalidFormat DenialReason = "INVALID_FORMAT"
)

// Document is a parsed identity document. Raw payloads are discarded after
// parsing; only the token and coarse metadata outlive the request.
type Document struct {
	FirstName      string
	LastName       string
	IDNumber       string
	IssuingRegion  string
	DateOfBirth    time.Time
	ExpirationDate time.Time
	Gender         string
	PostalCode     string
}

// Event is one scan ledger entry. Immutable once written; format-invalid
// scans never reach the ledger.
type Event struct {
	ID            id.ScanID
	BusinessID    id.BusinessID
	VenueID       id.VenueID
	AreaID        *id.AreaID
	DeviceID      *id.DeviceID
	UserID        id.UserID
	IdentityToken identity.Token
	Outcome       Outcome
	DenialReason  DenialReason
	Age           int
	Gender        string
	Zip           string
	CreatedAt     time.Time
}

// BanDetails surfaces why a banned scan was denied, for door staff.
type BanDetails struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
	Period string `json:"period"`
}

// Result is what the caller gets back from a scan submission.
type Result struct {
	ScanID     id.ScanID
	Outcome    Outcome
	Reason     DenialReason
	Document   *Document
	Age        int
	BanDetails *BanDetails
}
