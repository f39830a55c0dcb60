package occupancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/sync/errgroup"

	"headcount/internal/occupancy/cache"
	"headcount/internal/occupancy/metrics"
	id "headcount/pkg/domain"
	dErrors "headcount/pkg/domain-errors"
	"headcount/pkg/platform/audit"
	"headcount/pkg/platform/sentinel"
	"headcount/pkg/requestcontext"
)

var tracer = otel.Tracer("headcount/occupancy")

// resetConcurrency caps how many areas a venue or business reset touches at
// once, so a wide reset does not exhaust the connection pool.
const resetConcurrency = 8

// Service orchestrates the occupancy ledger: validation, cache refresh, and
// audit emission around the store's atomic operations.
type Service struct {
	store   Store
	cache   *cache.LiveCache
	audit   audit.Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, liveCache *cache.LiveCache, emitter audit.Emitter, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, cache: liveCache, audit: emitter, metrics: m, logger: logger}
}

// ApplyDelta appends one ledger event and moves the area's snapshot by the
// clamped delta. A zero delta is rejected; the ledger records movements, not
// heartbeats.
func (s *Service) ApplyDelta(ctx context.Context, in ApplyInput) (ApplyResult, error) {
	ctx, span := tracer.Start(ctx, "occupancy.ApplyDelta", trace.WithAttributes(
		attribute.String("area_id", in.AreaID.String()),
		attribute.Int("delta", in.Delta),
	))
	defer span.End()

	start := time.Now()

	if in.Delta == 0 {
		return ApplyResult{}, dErrors.New(dErrors.CodeValidation, "delta must be nonzero")
	}
	if err := validateTarget(in); err != nil {
		return ApplyResult{}, err
	}
	if in.Type == "" {
		in.Type = TypeManual
	}

	result, err := s.store.ApplyDelta(ctx, in)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("apply occupancy delta: %w", err)
	}

	s.metrics.IncrementDelta(string(in.Type))
	if in.Delta < 0 && result.CurrentOccupancy == 0 {
		// Counts exact landings on zero as well; a cheap signal, not an
		// exact clamp count.
		s.metrics.IncrementClamp()
	}
	s.metrics.ObserveApplyLatency(time.Since(start))

	s.refreshCache(ctx, in.AreaID, result.CurrentOccupancy)
	return result, nil
}

// SetAbsolute moves the area to an exact occupancy by appending one
// compensating delta. Manual counters report male and female headcounts
// separately; their sum is the target. When the snapshot already matches,
// nothing is written.
func (s *Service) SetAbsolute(ctx context.Context, in ApplyInput, male, female int) (ApplyResult, error) {
	ctx, span := tracer.Start(ctx, "occupancy.SetAbsolute")
	defer span.End()

	if err := validateTarget(in); err != nil {
		return ApplyResult{}, err
	}
	if male < 0 || female < 0 {
		return ApplyResult{}, dErrors.New(dErrors.CodeValidation, "counts must not be negative")
	}
	target := male + female
	in.Type = TypeAdjustment

	result, appended, err := s.store.SetAbsolute(ctx, in, target)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("set absolute occupancy: %w", err)
	}

	if appended {
		s.metrics.IncrementDelta(string(TypeAdjustment))
		s.emit(ctx, audit.Event{
			BusinessID: in.BusinessID,
			UserID:     requestcontext.UserID(ctx),
			Subject:    in.AreaID.String(),
			Action:     string(audit.EventOccupancyAdjusted),
			Reason:     "set to " + strconv.Itoa(target),
			RequestID:  requestcontext.RequestID(ctx),
		})
	}

	s.refreshCache(ctx, in.AreaID, result.CurrentOccupancy)
	return result, nil
}

// CurrentOccupancy reads the live count for an area. An area with no
// snapshot has simply never seen an event, so it reports zero rather than
// not-found.
func (s *Service) CurrentOccupancy(ctx context.Context, areaID id.AreaID) (int, error) {
	if cached, err := s.cache.Get(ctx, areaID); err == nil {
		return cached, nil
	}

	snap, err := s.store.GetSnapshot(ctx, areaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("get occupancy snapshot: %w", err)
	}
	s.refreshCache(ctx, areaID, snap.CurrentOccupancy)
	return snap.CurrentOccupancy, nil
}

// GetSnapshot returns the full snapshot row for an area.
func (s *Service) GetSnapshot(ctx context.Context, areaID id.AreaID) (*Snapshot, error) {
	snap, err := s.store.GetSnapshot(ctx, areaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no occupancy recorded for area")
		}
		return nil, fmt.Errorf("get occupancy snapshot: %w", err)
	}
	return snap, nil
}

// ResetParams selects what a reset covers. AreaID is required for scope
// AREA, VenueID for scope VENUE; business-wide resets derive everything
// from BusinessID.
type ResetParams struct {
	Scope      ResetScope
	BusinessID id.BusinessID
	VenueID    *id.VenueID
	AreaID     *id.AreaID
	DeviceID   *id.DeviceID
	UserID     *id.UserID
}

// Reset zeroes occupancy across the selected scope. Each area gets its own
// compensating event in its own transaction; one area failing leaves the
// others reset, and the per-area results say which.
func (s *Service) Reset(ctx context.Context, params ResetParams) ([]AreaResetResult, error) {
	ctx, span := tracer.Start(ctx, "occupancy.Reset", trace.WithAttributes(
		attribute.String("scope", string(params.Scope)),
	))
	defer span.End()

	areas, err := s.resolveAreas(ctx, params)
	if err != nil {
		return nil, err
	}

	results := make([]AreaResetResult, len(areas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resetConcurrency)
	for i, areaID := range areas {
		g.Go(func() error {
			in := ApplyInput{
				BusinessID: params.BusinessID,
				AreaID:     areaID,
				DeviceID:   params.DeviceID,
				UserID:     params.UserID,
				Type:       TypeReset,
			}
			if params.VenueID != nil {
				in.VenueID = *params.VenueID
			}
			cleared, err := s.store.ResetArea(gctx, in)
			if err != nil {
				results[i] = AreaResetResult{AreaID: areaID, Error: err.Error()}
				s.metrics.IncrementResetArea(string(params.Scope), "error")
				s.logger.ErrorContext(gctx, "area reset failed",
					"area_id", areaID.String(),
					"error", err,
				)
				return nil
			}
			results[i] = AreaResetResult{AreaID: areaID, Success: true}
			s.metrics.IncrementResetArea(string(params.Scope), "ok")
			if cleared > 0 {
				s.refreshCache(gctx, areaID, 0)
			}
			return nil
		})
	}
	g.Wait()

	s.emit(ctx, audit.Event{
		BusinessID: params.BusinessID,
		UserID:     requestcontext.UserID(ctx),
		Subject:    string(params.Scope),
		Action:     string(audit.EventOccupancyReset),
		Reason:     strconv.Itoa(len(areas)) + " areas",
		RequestID:  requestcontext.RequestID(ctx),
	})

	return results, nil
}

func (s *Service) resolveAreas(ctx context.Context, params ResetParams) ([]id.AreaID, error) {
	switch params.Scope {
	case ScopeArea:
		if params.AreaID == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "area_id is required for area-scoped resets")
		}
		return []id.AreaID{*params.AreaID}, nil
	case ScopeVenue:
		if params.VenueID == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "venue_id is required for venue-scoped resets")
		}
		areas, err := s.store.AreasForVenue(ctx, *params.VenueID)
		if err != nil {
			return nil, fmt.Errorf("list venue areas: %w", err)
		}
		return areas, nil
	case ScopeBusiness:
		areas, err := s.store.AreasForBusiness(ctx, params.BusinessID)
		if err != nil {
			return nil, fmt.Errorf("list business areas: %w", err)
		}
		return areas, nil
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "scope must be AREA, VENUE, or BUSINESS")
	}
}

// Rebuild replays the area's full ledger and overwrites the snapshot with
// the result. The snapshot is derived state; the ledger always wins.
func (s *Service) Rebuild(ctx context.Context, businessID id.BusinessID, areaID id.AreaID) (int, error) {
	occupancy, err := s.store.RebuildSnapshot(ctx, areaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "no occupancy recorded for area")
		}
		return 0, fmt.Errorf("rebuild occupancy snapshot: %w", err)
	}

	s.emit(ctx, audit.Event{
		Category:   audit.CategoryOperations,
		BusinessID: businessID,
		UserID:     requestcontext.UserID(ctx),
		Subject:    areaID.String(),
		Action:     string(audit.EventSnapshotRebuilt),
		RequestID:  requestcontext.RequestID(ctx),
	})

	s.refreshCache(ctx, areaID, occupancy)
	return occupancy, nil
}

func validateTarget(in ApplyInput) error {
	if in.BusinessID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "business_id is required")
	}
	if in.VenueID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "venue_id is required")
	}
	if in.AreaID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "area_id is required")
	}
	return nil
}

func (s *Service) refreshCache(ctx context.Context, areaID id.AreaID, occupancy int) {
	if err := s.cache.Set(ctx, areaID, occupancy); err != nil {
		s.logger.WarnContext(ctx, "occupancy cache refresh failed",
			"area_id", areaID.String(),
			"error", err,
		)
	}
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
