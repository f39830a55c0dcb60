package ban

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"headcount/internal/identity"
	id "headcount/pkg/domain"
	dErrors "headcount/pkg/domain-errors"
	"headcount/pkg/platform/audit"
	"headcount/pkg/platform/sentinel"
	"headcount/pkg/requestcontext"
)

// ScanResolver resolves the identity token behind a prior scan, so staff can
// ban "the person just scanned" without re-entering document fields.
type ScanResolver interface {
	IdentityToken(ctx context.Context, scanID id.ScanID) (identity.Token, error)
}

// Service owns ban lifecycle and evaluation.
type Service struct {
	store  Store
	hasher *identity.Hasher
	scans  ScanResolver
	audit  audit.Emitter
	logger *slog.Logger
}

func NewService(store Store, hasher *identity.Hasher, scans ScanResolver, emitter audit.Emitter, logger *slog.Logger) *Service {
	return &Service{store: store, hasher: hasher, scans: scans, audit: emitter, logger: logger}
}

// ManualIdentity carries raw document fields for a manually entered ban.
// The fields are hashed immediately and never stored.
type ManualIdentity struct {
	Region      string
	IDNumber    string
	DateOfBirth string
}

// CreateParams describes a new ban. Exactly one of FromScan or Manual must
// be set. Permanent bans leave EndAt nil.
type CreateParams struct {
	BusinessID id.BusinessID
	Scope      Scope
	VenueID    *id.VenueID
	FromScan   *id.ScanID
	Manual     *ManualIdentity
	ReasonCode string
	Notes      string
	Permanent  bool
	EndAt      *time.Time
}

// Create inserts a new active ban record.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Record, error) {
	token, err := s.resolveToken(ctx, params)
	if err != nil {
		return nil, err
	}

	if params.Scope == ScopeVenue && params.VenueID == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "venue_id is required for venue-scoped bans")
	}
	if params.ReasonCode == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason_code is required")
	}

	now := requestcontext.Now(ctx)

	record := &Record{
		ID:            id.BanID(uuid.New()),
		BusinessID:    params.BusinessID,
		IdentityToken: token,
		ReasonCode:    params.ReasonCode,
		Notes:         params.Notes,
		CreatedAt:     now,
		Active:        true,
	}
	if params.Scope == ScopeVenue {
		record.VenueID = params.VenueID
	}
	if !params.Permanent {
		if params.EndAt == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "end_date is required for dated bans")
		}
		if !params.EndAt.After(now) {
			return nil, dErrors.New(dErrors.CodeValidation, "end_date must be in the future")
		}
		record.EndAt = params.EndAt
	}

	if err := s.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create ban: %w", err)
	}

	s.emit(ctx, audit.Event{
		BusinessID:   params.BusinessID,
		UserID:       requestcontext.UserID(ctx),
		Subject:      record.ID.String(),
		Action:       string(audit.EventBanCreated),
		Reason:       record.ReasonCode,
		RequestID:    requestcontext.RequestID(ctx),
		SubjectToken: string(token),
	})

	return record, nil
}

func (s *Service) resolveToken(ctx context.Context, params CreateParams) (identity.Token, error) {
	switch {
	case params.FromScan != nil && params.Manual != nil:
		return "", dErrors.New(dErrors.CodeValidation, "provide either scan_id or manual identity, not both")
	case params.FromScan != nil:
		token, err := s.scans.IdentityToken(ctx, *params.FromScan)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return "", dErrors.New(dErrors.CodeNotFound, "scan not found")
			}
			return "", fmt.Errorf("resolve scan identity: %w", err)
		}
		return token, nil
	case params.Manual != nil:
		m := params.Manual
		if m.Region == "" || m.IDNumber == "" || m.DateOfBirth == "" {
			return "", dErrors.New(dErrors.CodeValidation, "manual identity requires state, id number, and date of birth")
		}
		dob, err := canonicalDOB(m.DateOfBirth)
		if err != nil {
			return "", err
		}
		return s.hasher.Hash(m.Region, m.IDNumber, dob), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "either scan_id or manual identity is required")
	}
}

// dobLayouts are the date-of-birth formats staff may type in. Scan tokens
// always hash the compact form, so manual input must canonicalize to it or
// the ban would never match that person's scans.
var dobLayouts = []string{"20060102", "2006-01-02", "01/02/2006"}

func canonicalDOB(raw string) (string, error) {
	for _, layout := range dobLayouts {
		if dob, err := time.Parse(layout, raw); err == nil {
			return dob.Format("20060102"), nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "date of birth must be YYYYMMDD, YYYY-MM-DD, or MM/DD/YYYY")
}

// Revoke deactivates a ban. Revoking an already-inactive ban is a no-op,
// not an error.
func (s *Service) Revoke(ctx context.Context, banID id.BanID) (*Record, error) {
	record, err := s.store.FindByID(ctx, banID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "ban not found")
		}
		return nil, fmt.Errorf("load ban: %w", err)
	}

	if !record.Active {
		return record, nil
	}

	now := requestcontext.Now(ctx)
	record.Active = false
	record.RevokedAt = &now

	if err := s.store.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("revoke ban: %w", err)
	}

	s.emit(ctx, audit.Event{
		BusinessID:   record.BusinessID,
		UserID:       requestcontext.UserID(ctx),
		Subject:      record.ID.String(),
		Action:       string(audit.EventBanRevoked),
		Reason:       record.ReasonCode,
		RequestID:    requestcontext.RequestID(ctx),
		SubjectToken: string(record.IdentityToken),
	})

	return record, nil
}

// FindActiveBans returns all bans currently in force for the identity
// across the business.
func (s *Service) FindActiveBans(ctx context.Context, businessID id.BusinessID, token identity.Token) ([]Record, error) {
	return s.store.FindActive(ctx, businessID, token)
}

// Check evaluates whether the identity is banned at the given venue.
func (s *Service) Check(ctx context.Context, businessID id.BusinessID, venueID id.VenueID, token identity.Token) (Match, error) {
	bans, err := s.store.FindActive(ctx, businessID, token)
	if err != nil {
		return Match{}, fmt.Errorf("find active bans: %w", err)
	}
	return Evaluate(bans, venueID), nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "emit audit event failed",
			"action", event.Action,
			"error", err,
		)
	}
}
