package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/requestcontext"
)

// HeaderOperatorToken authenticates operational endpoints such as /metrics.
const HeaderOperatorToken = "X-Operator-Token"

// RequireOperatorToken guards operational endpoints with a shared secret. An
// empty expectedToken leaves the endpoint open.
func RequireOperatorToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderOperatorToken)
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "operator token mismatch",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "operator token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
