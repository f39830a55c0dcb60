// Package requestid copies the request correlation ID into the request
// context accessor used by services and audit records.
package requestid

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"headcount/pkg/requestcontext"
)

// Middleware bridges the router's request ID into requestcontext. Must run
// after the router's RequestID middleware.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
