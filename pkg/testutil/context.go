package testutil

import (
	"net/http"

	id "headcount/pkg/domain"
	"headcount/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, simulating what the auth
// middleware does for authenticated requests. An invalid UUID is ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithBusinessID adds a business ID to the request context. An invalid UUID
// is ignored.
func WithBusinessID(req *http.Request, businessID string) *http.Request {
	parsed, err := id.ParseBusinessID(businessID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithBusinessID(req.Context(), parsed))
}
