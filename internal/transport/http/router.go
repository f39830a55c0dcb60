// Package httptransport assembles the HTTP surface: middleware chain,
// health and metrics endpoints, and the authenticated domain routes.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"headcount/pkg/platform/middleware/auth"
	"headcount/pkg/platform/middleware/metadata"
	"headcount/pkg/platform/middleware/requestid"
	"headcount/pkg/platform/middleware/requesttime"
	"headcount/pkg/platform/middleware/throttle"
)

// Registrar is implemented by module handlers that attach their routes.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires the middleware chain and mounts every module's routes
// behind authentication. Health and metrics stay outside the auth boundary.
func NewRouter(verifier *auth.Verifier, limiter *throttle.Limiter, logger *slog.Logger, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestid.Middleware)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(verifier, logger))
		if limiter != nil {
			r.Use(throttle.Middleware(limiter))
		}
		for _, h := range handlers {
			h.Register(r)
		}
	})

	return r
}
