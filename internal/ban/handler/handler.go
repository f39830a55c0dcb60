// Package handler exposes ban lifecycle operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"headcount/internal/ban"
	id "headcount/pkg/domain"
	dErrors "headcount/pkg/domain-errors"
	"headcount/pkg/platform/httputil"
	"headcount/pkg/requestcontext"
)

// Service defines the ban operations the handler depends on.
type Service interface {
	Create(ctx context.Context, params ban.CreateParams) (*ban.Record, error)
	Revoke(ctx context.Context, banID id.BanID) (*ban.Record, error)
}

type Handler struct {
	bans   Service
	logger *slog.Logger
}

func New(bans Service, logger *slog.Logger) *Handler {
	return &Handler{bans: bans, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/bans", h.handleCreate)
	r.Delete("/bans/{banID}", h.handleRevoke)
}

type manualIdentity struct {
	State    string `json:"state"`
	IDNumber string `json:"id_number"`
	DOB      string `json:"dob"`
}

type createRequest struct {
	ScanID     string          `json:"scan_id,omitempty"`
	Manual     *manualIdentity `json:"manual_identity,omitempty"`
	Scope      string          `json:"scope"`
	VenueID    string          `json:"venue_id,omitempty"`
	ReasonCode string          `json:"reason_code"`
	Notes      string          `json:"notes,omitempty"`
	Duration   string          `json:"duration"`
	EndDate    string          `json:"end_date,omitempty"`

	scanID  *id.ScanID
	venueID *id.VenueID
	endAt   *time.Time
}

func (r *createRequest) Validate() error {
	switch ban.Scope(r.Scope) {
	case ban.ScopeBusiness, ban.ScopeVenue:
	default:
		return dErrors.New(dErrors.CodeValidation, "scope must be BUSINESS or VENUE")
	}
	if r.ScanID != "" {
		scanID, err := id.ParseScanID(r.ScanID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "scan_id must be a valid UUID")
		}
		r.scanID = &scanID
	}
	if r.VenueID != "" {
		venueID, err := id.ParseVenueID(r.VenueID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "venue_id must be a valid UUID")
		}
		r.venueID = &venueID
	}
	switch r.Duration {
	case "", "PERMANENT":
	case "DATED":
		if r.EndDate == "" {
			return dErrors.New(dErrors.CodeValidation, "end_date is required for dated bans")
		}
		endAt, err := time.Parse(time.RFC3339, r.EndDate)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "end_date must be RFC 3339")
		}
		r.endAt = &endAt
	default:
		return dErrors.New(dErrors.CodeValidation, "duration must be PERMANENT or DATED")
	}
	return nil
}

type banResponse struct {
	ID         string `json:"id"`
	Scope      string `json:"scope"`
	VenueID    string `json:"venue_id,omitempty"`
	ReasonCode string `json:"reason_code"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"created_at"`
	EndAt      string `json:"end_at,omitempty"`
	Active     bool   `json:"active"`
	RevokedAt  string `json:"revoked_at,omitempty"`
}

func toResponse(record *ban.Record) banResponse {
	resp := banResponse{
		ID:         record.ID.String(),
		Scope:      string(ban.ScopeBusiness),
		ReasonCode: record.ReasonCode,
		Notes:      record.Notes,
		CreatedAt:  record.CreatedAt.UTC().Format(time.RFC3339),
		Active:     record.Active,
	}
	if record.VenueID != nil {
		resp.Scope = string(ban.ScopeVenue)
		resp.VenueID = record.VenueID.String()
	}
	if record.EndAt != nil {
		resp.EndAt = record.EndAt.UTC().Format(time.RFC3339)
	}
	if record.RevokedAt != nil {
		resp.RevokedAt = record.RevokedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	params := ban.CreateParams{
		BusinessID: requestcontext.BusinessID(ctx),
		Scope:      ban.Scope(req.Scope),
		VenueID:    req.venueID,
		FromScan:   req.scanID,
		ReasonCode: req.ReasonCode,
		Notes:      req.Notes,
		Permanent:  req.endAt == nil,
		EndAt:      req.endAt,
	}
	if req.Manual != nil {
		params.Manual = &ban.ManualIdentity{
			Region:      req.Manual.State,
			IDNumber:    req.Manual.IDNumber,
			DateOfBirth: req.Manual.DOB,
		}
	}

	record, err := h.bans.Create(ctx, params)
	if err != nil {
		h.writeServiceError(ctx, w, "create ban", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(record))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	banID, err := id.ParseBanID(chi.URLParam(r, "banID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "ban id must be a valid UUID"))
		return
	}

	record, err := h.bans.Revoke(ctx, banID)
	if err != nil {
		h.writeServiceError(ctx, w, "revoke ban", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(record))
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
