// Package requestcontext provides HTTP-independent accessors for request-scoped values.
//
// Middleware sets the values; services read them without importing net/http:
//
//	userID := requestcontext.UserID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "donorhub/pkg/domain"
)

type (
	userIDKey      struct{}
	roleKey        struct{}
	tokenIDKey     struct{}
	tokenExpiryKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported keys for tests that need context.WithValue directly.
var (
	ContextKeyUserID      = userIDKey{}
	ContextKeyRole        = roleKey{}
	ContextKeyTokenID     = tokenIDKey{}
	ContextKeyTokenExpiry = tokenExpiryKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Authenticated principal
// -----------------------------------------------------------------------------

// UserID returns the authenticated user ID, or the nil ID when unauthenticated.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(ContextKeyUserID).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// Role returns the role claimed by the bearer token. Services treat the stored
// account role as authoritative; this is only a hint for logging.
func Role(ctx context.Context) id.Role {
	if role, ok := ctx.Value(ContextKeyRole).(id.Role); ok {
		return role
	}
	return ""
}

func WithRole(ctx context.Context, role id.Role) context.Context {
	return context.WithValue(ctx, ContextKeyRole, role)
}

// TokenID returns the JWT ID of the presented bearer token.
func TokenID(ctx context.Context) string {
	if jti, ok := ctx.Value(ContextKeyTokenID).(string); ok {
		return jti
	}
	return ""
}

// TokenExpiry returns the expiry of the presented bearer token.
func TokenExpiry(ctx context.Context) time.Time {
	if exp, ok := ctx.Value(ContextKeyTokenExpiry).(time.Time); ok {
		return exp
	}
	return time.Time{}
}

// WithToken records the identifiers of the presented bearer token so logout
// can revoke it.
func WithToken(ctx context.Context, jti string, expiresAt time.Time) context.Context {
	ctx = context.WithValue(ctx, ContextKeyTokenID, jti)
	return context.WithValue(ctx, ContextKeyTokenExpiry, expiresAt)
}

// -----------------------------------------------------------------------------
// Client metadata
// -----------------------------------------------------------------------------

func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	return context.WithValue(ctx, ContextKeyUserAgent, userAgent)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request-scoped time, falling back to time.Now() outside of
// HTTP requests (bootstrap, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request-scoped time. Tests use it to evaluate eligibility
// and token lifetimes on fixed dates.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
