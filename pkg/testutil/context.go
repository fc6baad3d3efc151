package testutil

import (
	"net/http"

	id "donorhub/pkg/domain"
	"donorhub/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsedUserID))
	}
	return req
}

// WithActor adds the user ID and role the auth middleware would set.
func WithActor(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}
