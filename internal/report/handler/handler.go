// Package handler exposes ledger-derived reports over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"headcount/internal/report"
	id "headcount/pkg/domain"
	dErrors "headcount/pkg/domain-errors"
	"headcount/pkg/platform/httputil"
	"headcount/pkg/requestcontext"
)

// Service defines the report operations the handler depends on.
type Service interface {
	Daily(ctx context.Context, businessID id.BusinessID, date time.Time) (report.Summary, error)
}

type Handler struct {
	reports Service
	logger  *slog.Logger
}

func New(reports Service, logger *slog.Logger) *Handler {
	return &Handler{reports: reports, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/reports/daily", h.handleDaily)
}

type dailyResponse struct {
	Date    string `json:"date"`
	Metrics struct {
		TotalEntries     int `json:"total_entries"`
		TotalExits       int `json:"total_exits"`
		PeakOccupancy    int `json:"peak_occupancy"`
		ClosingOccupancy int `json:"closing_occupancy"`
	} `json:"metrics"`
	HourlyBreakdown [24]report.HourBucket `json:"hourly_breakdown"`
}

func (h *Handler) handleDaily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD"))
		return
	}

	summary, err := h.reports.Daily(ctx, requestcontext.BusinessID(ctx), date)
	if err != nil {
		h.logger.ErrorContext(ctx, "daily report failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "report failed"))
		return
	}

	var resp dailyResponse
	resp.Date = date.Format("2006-01-02")
	resp.Metrics.TotalEntries = summary.TotalEntries
	resp.Metrics.TotalExits = summary.TotalExits
	resp.Metrics.PeakOccupancy = summary.PeakOccupancy
	resp.Metrics.ClosingOccupancy = summary.ClosingOccupancy
	resp.HourlyBreakdown = summary.Hourly
	httputil.WriteJSON(w, http.StatusOK, resp)
}
