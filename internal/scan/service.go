package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"headcount/internal/ban"
	"headcount/internal/identity"
	"headcount/internal/occupancy"
	"headcount/internal/policy"
	"headcount/internal/scan/metrics"
	id "headcount/pkg/domain"
	dErrors "headcount/pkg/domain-errors"
	"headcount/pkg/platform/audit"
	"headcount/pkg/requestcontext"
)

var tracer = otel.Tracer("headcount/scan")

// BanChecker evaluates whether an identity is banned at a venue.
type BanChecker interface {
	Check(ctx context.Context, businessID id.BusinessID, venueID id.VenueID, token identity.Token) (ban.Match, error)
}

// PolicyResolver returns the effective admission policy for a business.
type PolicyResolver interface {
	Effective(ctx context.Context, businessID id.BusinessID) (policy.Policy, error)
}

// OccupancyApplier applies the +1 delta for accepted scans.
type OccupancyApplier interface {
	ApplyDelta(ctx context.Context, in occupancy.ApplyInput) (occupancy.ApplyResult, error)
}

// IdentityStore keeps the per-identity summary current.
type IdentityStore interface {
	Upsert(ctx context.Context, summary identity.Summary) error
}

// Service runs the admission pipeline end to end.
type Service struct {
	parser     Parser
	hasher     *identity.Hasher
	store      Store
	bans       BanChecker
	policies   PolicyResolver
	occupancy  OccupancyApplier
	identities IdentityStore
	audit      audit.Emitter
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(
	parser Parser,
	hasher *identity.Hasher,
	store Store,
	bans BanChecker,
	policies PolicyResolver,
	occupancyApplier OccupancyApplier,
	identities IdentityStore,
	emitter audit.Emitter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		parser:     parser,
		hasher:     hasher,
		store:      store,
		bans:       bans,
		policies:   policies,
		occupancy:  occupancyApplier,
		identities: identities,
		audit:      emitter,
		metrics:    m,
		logger:     logger,
	}
}

// SubmitParams carries one raw scan from a door device.
type SubmitParams struct {
	BusinessID id.BusinessID
	VenueID    id.VenueID
	AreaID     *id.AreaID
	DeviceID   *id.DeviceID
	RawPayload string
}

// Submit resolves one scan to a terminal outcome. A malformed payload
// short-circuits with INVALID_FORMAT and writes nothing; every other path
// writes exactly one scan ledger row. The occupancy increment for accepted
// scans is best-effort: its failure is logged as drift, never propagated,
// because the admission decision already stands.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (*Result, error) {
	ctx, span := tracer.Start(ctx, "scan.Submit", trace.WithAttributes(
		attribute.String("venue_id", params.VenueID.String()),
	))
	defer span.End()

	start := time.Now()

	if params.BusinessID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "business_id is required")
	}
	if params.VenueID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "venue_id is required")
	}

	doc, err := s.parser.Parse(params.RawPayload)
	if err != nil {
		s.metrics.IncrementOutcome(string(OutcomeDenied), string(ReasonInvalidFormat))
		s.logger.InfoContext(ctx, "scan payload rejected",
			"venue_id", params.VenueID.String(),
			"error", err,
		)
		return &Result{Outcome: OutcomeDenied, Reason: ReasonInvalidFormat}, nil
	}

	token := s.hasher.Hash(doc.IssuingRegion, doc.IDNumber, doc.DateOfBirth.Format("20060102"))

	// Policy and ban lookups are load-bearing: admission cannot be decided
	// without them, so their failure aborts the scan.
	pol, err := s.policies.Effective(ctx, params.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("resolve business policy: %w", err)
	}
	match, err := s.bans.Check(ctx, params.BusinessID, params.VenueID, token)
	if err != nil {
		return nil, fmt.Errorf("check bans: %w", err)
	}

	now := requestcontext.Now(ctx)
	decision := Decide(doc, match.Banned(), pol.MinAge, now)
	age := Age(doc.DateOfBirth, now)

	event := &Event{
		ID:            id.ScanID(uuid.New()),
		BusinessID:    params.BusinessID,
		VenueID:       params.VenueID,
		AreaID:        params.AreaID,
		DeviceID:      params.DeviceID,
		UserID:        requestcontext.UserID(ctx),
		IdentityToken: token,
		Outcome:       decision.Outcome,
		DenialReason:  decision.Reason,
		Age:           age,
		Gender:        doc.Gender,
		Zip:           doc.PostalCode,
		CreatedAt:     now,
	}
	if err := s.store.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("append scan event: %w", err)
	}

	s.upsertIdentity(ctx, token, doc, now)

	result := &Result{
		ScanID:   event.ID,
		Outcome:  decision.Outcome,
		Reason:   decision.Reason,
		Document: doc,
		Age:      age,
	}
	if decision.Reason == ReasonBanned && match.Record != nil {
		result.BanDetails = banDetails(match.Record)
	}

	if decision.Outcome == OutcomeAccepted && pol.AutoIncrement && params.AreaID != nil {
		s.incrementOccupancy(ctx, params, event.ID)
	}

	s.metrics.IncrementOutcome(string(decision.Outcome), string(decision.Reason))
	s.metrics.ObserveSubmitLatency(time.Since(start))
	s.emitDecision(ctx, event)

	return result, nil
}

// incrementOccupancy applies the +1 for an accepted scan. The scan already
// has its terminal outcome, so a failed increment is recorded as drift to
// reconcile later, never retried against the scan.
func (s *Service) incrementOccupancy(ctx context.Context, params SubmitParams, scanID id.ScanID) {
	_, err := s.occupancy.ApplyDelta(ctx, occupancy.ApplyInput{
		BusinessID: params.BusinessID,
		VenueID:    params.VenueID,
		AreaID:     *params.AreaID,
		DeviceID:   params.DeviceID,
		Delta:      1,
		Type:       occupancy.TypeScan,
	})
	if err != nil {
		s.metrics.IncrementDrift()
		s.logger.WarnContext(ctx, "occupancy increment failed after accepted scan",
			"scan_id", scanID.String(),
			"area_id", params.AreaID.String(),
			"error", err,
		)
	}
}

// upsertIdentity keeps the coarse per-identity summary current. Best-effort;
// the summary table is analytics, not admission state.
func (s *Service) upsertIdentity(ctx context.Context, token identity.Token, doc *Document, now time.Time) {
	if s.identities == nil {
		return
	}
	summary := identity.NewSummary(token, doc.IssuingRegion, doc.DateOfBirth, doc.FirstName, doc.LastName, now)
	if err := s.identities.Upsert(ctx, summary); err != nil {
		s.logger.WarnContext(ctx, "identity summary upsert failed",
			"error", err,
		)
	}
}

func (s *Service) emitDecision(ctx context.Context, event *Event) {
	if s.audit == nil {
		return
	}
	action := audit.EventScanAccepted
	if event.Outcome == OutcomeDenied {
		action = audit.EventScanDenied
	}
	auditEvent := audit.Event{
		BusinessID:   event.BusinessID,
		UserID:       event.UserID,
		Subject:      event.ID.String(),
		Action:       string(action),
		Decision:     string(event.Outcome),
		Reason:       string(event.DenialReason),
		RequestID:    requestcontext.RequestID(ctx),
		SubjectToken: string(event.IdentityToken),
	}
	if err := s.audit.Emit(ctx, auditEvent); err != nil {
		s.logger.WarnContext(ctx, "emit audit event failed",
			"action", auditEvent.Action,
			"error", err,
		)
	}
}

func banDetails(record *ban.Record) *BanDetails {
	details := &BanDetails{
		Reason: record.ReasonCode,
		Notes:  record.Notes,
		Period: "PERMANENT",
	}
	if record.EndAt != nil {
		details.Period = "until " + record.EndAt.UTC().Format(time.RFC3339)
	}
	return details
}
