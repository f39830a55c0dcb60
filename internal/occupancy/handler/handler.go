// Package handler exposes occupancy operations over HTTP: delta
// application, live reads, manual counts, resets, and snapshot rebuilds.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"headcount/internal/occupancy"
	id "headcount/pkg/domain"
	dErrors "headcount/pkg/domain-errors"
	"headcount/pkg/platform/httputil"
	"headcount/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/occupancy-mocks.go -package=mocks Service

// Service defines the occupancy operations the handler depends on.
type Service interface {
	ApplyDelta(ctx context.Context, in occupancy.ApplyInput) (occupancy.ApplyResult, error)
	SetAbsolute(ctx context.Context, in occupancy.ApplyInput, male, female int) (occupancy.ApplyResult, error)
	CurrentOccupancy(ctx context.Context, areaID id.AreaID) (int, error)
	Reset(ctx context.Context, params occupancy.ResetParams) ([]occupancy.AreaResetResult, error)
	Rebuild(ctx context.Context, businessID id.BusinessID, areaID id.AreaID) (int, error)
}

type Handler struct {
	occupancy Service
	logger    *slog.Logger
}

func New(occupancyService Service, logger *slog.Logger) *Handler {
	return &Handler{occupancy: occupancyService, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/occupancy/delta", h.handleDelta)
	r.Get("/occupancy/areas/{areaID}", h.handleGet)
	r.Put("/occupancy/areas/{areaID}", h.handleSetAbsolute)
	r.Post("/occupancy/reset", h.handleReset)
	r.Post("/occupancy/areas/{areaID}/rebuild", h.handleRebuild)
}

type deltaRequest struct {
	VenueID  string `json:"venue_id"`
	AreaID   string `json:"area_id"`
	DeviceID string `json:"device_id,omitempty"`
	Delta    int    `json:"delta"`
	Source   string `json:"source,omitempty"`

	venueID  id.VenueID
	areaID   id.AreaID
	deviceID *id.DeviceID
}

func (r *deltaRequest) Validate() error {
	var err error
	if r.venueID, err = id.ParseVenueID(r.VenueID); err != nil {
		return dErrors.New(dErrors.CodeValidation, "venue_id must be a valid UUID")
	}
	if r.areaID, err = id.ParseAreaID(r.AreaID); err != nil {
		return dErrors.New(dErrors.CodeValidation, "area_id must be a valid UUID")
	}
	if r.DeviceID != "" {
		deviceID, err := id.ParseDeviceID(r.DeviceID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "device_id must be a valid UUID")
		}
		r.deviceID = &deviceID
	}
	return nil
}

type deltaResponse struct {
	EventID          string `json:"event_id"`
	CurrentOccupancy int    `json:"current_occupancy"`
}

func (h *Handler) handleDelta(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[deltaRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	eventType := occupancy.TypeManual
	if req.Source == string(occupancy.TypeScan) {
		eventType = occupancy.TypeScan
	}

	result, err := h.occupancy.ApplyDelta(ctx, occupancy.ApplyInput{
		BusinessID: requestcontext.BusinessID(ctx),
		VenueID:    req.venueID,
		AreaID:     req.areaID,
		DeviceID:   req.deviceID,
		Delta:      req.Delta,
		Type:       eventType,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "apply occupancy delta", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deltaResponse{
		EventID:          result.EventID.String(),
		CurrentOccupancy: result.CurrentOccupancy,
	})
}

type occupancyResponse struct {
	AreaID           string `json:"area_id"`
	CurrentOccupancy int    `json:"current_occupancy"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	areaID, err := id.ParseAreaID(chi.URLParam(r, "areaID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "area id must be a valid UUID"))
		return
	}

	occ, err := h.occupancy.CurrentOccupancy(ctx, areaID)
	if err != nil {
		h.writeServiceError(ctx, w, "read occupancy", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, occupancyResponse{
		AreaID:           areaID.String(),
		CurrentOccupancy: occ,
	})
}

type setAbsoluteRequest struct {
	VenueID  string `json:"venue_id"`
	DeviceID string `json:"device_id,omitempty"`
	Male     int    `json:"male"`
	Female   int    `json:"female"`

	venueID  id.VenueID
	deviceID *id.DeviceID
}

func (r *setAbsoluteRequest) Validate() error {
	var err error
	if r.venueID, err = id.ParseVenueID(r.VenueID); err != nil {
		return dErrors.New(dErrors.CodeValidation, "venue_id must be a valid UUID")
	}
	if r.DeviceID != "" {
		deviceID, err := id.ParseDeviceID(r.DeviceID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "device_id must be a valid UUID")
		}
		r.deviceID = &deviceID
	}
	return nil
}

func (h *Handler) handleSetAbsolute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	areaID, err := id.ParseAreaID(chi.URLParam(r, "areaID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "area id must be a valid UUID"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[setAbsoluteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.occupancy.SetAbsolute(ctx, occupancy.ApplyInput{
		BusinessID: requestcontext.BusinessID(ctx),
		VenueID:    req.venueID,
		AreaID:     areaID,
		DeviceID:   req.deviceID,
	}, req.Male, req.Female)
	if err != nil {
		h.writeServiceError(ctx, w, "set occupancy", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, occupancyResponse{
		AreaID:           areaID.String(),
		CurrentOccupancy: result.CurrentOccupancy,
	})
}

type resetRequest struct {
	Scope    string `json:"scope"`
	TargetID string `json:"target_id,omitempty"`

	venueID *id.VenueID
	areaID  *id.AreaID
}

func (r *resetRequest) Validate() error {
	switch occupancy.ResetScope(r.Scope) {
	case occupancy.ScopeArea:
		areaID, err := id.ParseAreaID(r.TargetID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "target_id must be a valid area UUID")
		}
		r.areaID = &areaID
	case occupancy.ScopeVenue:
		venueID, err := id.ParseVenueID(r.TargetID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "target_id must be a valid venue UUID")
		}
		r.venueID = &venueID
	case occupancy.ScopeBusiness:
	default:
		return dErrors.New(dErrors.CodeValidation, "scope must be AREA, VENUE, or BUSINESS")
	}
	return nil
}

type resetResponse struct {
	Results []areaResetResult `json:"results"`
}

type areaResetResult struct {
	AreaID  string `json:"area_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[resetRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	userID := requestcontext.UserID(ctx)
	params := occupancy.ResetParams{
		Scope:      occupancy.ResetScope(req.Scope),
		BusinessID: requestcontext.BusinessID(ctx),
		VenueID:    req.venueID,
		AreaID:     req.areaID,
	}
	if !userID.IsNil() {
		params.UserID = &userID
	}

	results, err := h.occupancy.Reset(ctx, params)
	if err != nil {
		h.writeServiceError(ctx, w, "reset occupancy", err)
		return
	}

	resp := resetResponse{Results: make([]areaResetResult, 0, len(results))}
	for _, result := range results {
		resp.Results = append(resp.Results, areaResetResult{
			AreaID:  result.AreaID.String(),
			Success: result.Success,
			Error:   result.Error,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRebuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	areaID, err := id.ParseAreaID(chi.URLParam(r, "areaID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "area id must be a valid UUID"))
		return
	}

	occ, err := h.occupancy.Rebuild(ctx, requestcontext.BusinessID(ctx), areaID)
	if err != nil {
		h.writeServiceError(ctx, w, "rebuild snapshot", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, occupancyResponse{
		AreaID:           areaID.String(),
		CurrentOccupancy: occ,
	})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch {
	case dErrors.HasCode(err, dErrors.CodeValidation), dErrors.HasCode(err, dErrors.CodeNotFound):
		httputil.WriteError(w, err)
	default:
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, op+" failed"))
	}
}
