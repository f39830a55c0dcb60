// Package handler exposes scan submission over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"headcount/internal/scan"
	id "headcount/pkg/domain"
	dErrors "headcount/pkg/domain-errors"
	"headcount/pkg/platform/httputil"
	"headcount/pkg/requestcontext"
)

// Service defines the scan operations the handler depends on.
type Service interface {
	Submit(ctx context.Context, params scan.SubmitParams) (*scan.Result, error)
}

type Handler struct {
	scans  Service
	logger *slog.Logger
}

func New(scans Service, logger *slog.Logger) *Handler {
	return &Handler{scans: scans, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/scans", h.handleSubmit)
}

type submitRequest struct {
	RawPayload string `json:"raw_payload"`
	VenueID    string `json:"venue_id"`
	AreaID     string `json:"area_id,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`

	venueID  id.VenueID
	areaID   *id.AreaID
	deviceID *id.DeviceID
}

func (r *submitRequest) Validate() error {
	if r.RawPayload == "" {
		return dErrors.New(dErrors.CodeValidation, "raw_payload is required")
	}
	venueID, err := id.ParseVenueID(r.VenueID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "venue_id must be a valid UUID")
	}
	r.venueID = venueID
	if r.AreaID != "" {
		areaID, err := id.ParseAreaID(r.AreaID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "area_id must be a valid UUID")
		}
		r.areaID = &areaID
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

type documentData struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	DOB            string `json:"dob"`
	ExpirationDate string `json:"expiration_date"`
	IssuingState   string `json:"issuing_state"`
}

type submitResponse struct {
	ScanID     string           `json:"scan_id,omitempty"`
	Outcome    string           `json:"outcome"`
	Reason     string           `json:"reason,omitempty"`
	Data       *documentData    `json:"data,omitempty"`
	BanDetails *scan.BanDetails `json:"ban_details,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.scans.Submit(ctx, scan.SubmitParams{
		BusinessID: requestcontext.BusinessID(ctx),
		VenueID:    req.venueID,
		AreaID:     req.areaID,
		DeviceID:   req.deviceID,
		RawPayload: req.RawPayload,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "scan submission failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "scan failed"))
		return
	}

	resp := submitResponse{
		Outcome:    string(result.Outcome),
		Reason:     string(result.Reason),
		BanDetails: result.BanDetails,
	}
	if !result.ScanID.IsNil() {
		resp.ScanID = result.ScanID.String()
	}
	if doc := result.Document; doc != nil {
		resp.Data = &documentData{
			FirstName:      doc.FirstName,
			LastName:       doc.LastName,
			Age:            result.Age,
			Gender:         doc.Gender,
			DOB:            doc.DateOfBirth.Format("2006-01-02"),
			ExpirationDate: doc.ExpirationDate.Format("2006-01-02"),
			IssuingState:   doc.IssuingRegion,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
