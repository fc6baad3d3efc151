package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID    string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid, unrevoked bearer token and
// stores the principal in the request context.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					err = dErrors.New(dErrors.CodeUnauthorized, "invalid token")
				}
				httputil.WriteError(w, err)
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
				return
			}

			if revocationChecker != nil {
				if claims.JTI == "" {
					logger.WarnContext(ctx, "unauthorized access - missing token jti",
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
					return
				}

				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked"))
					return
				}
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			ctx = requestcontext.WithRole(ctx, id.Role(claims.Role))
			ctx = requestcontext.WithToken(ctx, claims.JTI, claims.ExpiresAt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth behaves like RequireAuth when an Authorization header is
// present and passes anonymous requests through untouched.
func OptionalAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	required := RequireAuth(validator, revocationChecker, logger)
	return func(next http.Handler) http.Handler {
		authed := required(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			authed.ServeHTTP(w, r)
		})
	}
}
