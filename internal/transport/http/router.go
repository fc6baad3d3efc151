package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"donorhub/internal/platform/metrics"
	"donorhub/pkg/platform/middleware/admin"
	authmw "donorhub/pkg/platform/middleware/auth"
	"donorhub/pkg/platform/middleware/metadata"
	"donorhub/pkg/platform/middleware/request"
	"donorhub/pkg/platform/middleware/requesttime"
)

// AuthRoutes mounts account endpoints split by authentication requirement.
type AuthRoutes interface {
	RegisterPublic(r chi.Router)
	RegisterProtected(r chi.Router)
}

// DonorRoutes mounts donor endpoints behind authentication.
type DonorRoutes interface {
	Register(r chi.Router)
}

// Deps carries everything the router wires together.
type Deps struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	OperatorToken string

	Tokens      authmw.JWTValidator
	Revocations authmw.TokenRevocationChecker

	Auth   AuthRoutes
	Donors DonorRoutes
	Health *HealthHandler
}

// NewRouter builds the chi router. Middleware order: request ID, panic
// recovery, client metadata, request clock, access log.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger, d.Metrics))

	r.Get("/health", d.Health.HandleHealth)
	r.With(admin.RequireOperatorToken(d.OperatorToken, d.Logger)).
		Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/", HandleIndex)

		r.Group(func(r chi.Router) {
			r.Use(authmw.OptionalAuth(d.Tokens, d.Revocations, d.Logger))
			d.Auth.RegisterPublic(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(d.Tokens, d.Revocations, d.Logger))
			d.Auth.RegisterProtected(r)
			d.Donors.Register(r)
		})
	})
	return r
}
