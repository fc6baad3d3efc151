package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/requestcontext"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports the state of the configured dependencies.
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealthHandler(logger *slog.Logger, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second, logger: logger}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HandleHealth handles GET /health. Any failing dependency turns the response
// into a 503.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "healthy", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed",
				"check", name,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			resp.Status = "unhealthy"
			resp.Checks[name] = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

type endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var apiIndex = []endpoint{
	{http.MethodPost, "/api/auth/register", "register an account"},
	{http.MethodPost, "/api/auth/login", "obtain an access token"},
	{http.MethodPost, "/api/auth/logout", "revoke the presented token"},
	{http.MethodGet, "/api/auth/profile", "current account"},
	{http.MethodGet, "/api/auth/users", "list accounts (administrator)"},
	{http.MethodPut, "/api/auth/users/{id}", "update an account (administrator)"},
	{http.MethodDelete, "/api/auth/users/{id}", "delete an account (administrator)"},
	{http.MethodPost, "/api/donors", "register a donor"},
	{http.MethodGet, "/api/donors", "list donors"},
	{http.MethodGet, "/api/donors/{id}", "get a donor"},
	{http.MethodPut, "/api/donors/{id}", "update a donor"},
	{http.MethodDelete, "/api/donors/{id}", "delete a donor"},
	{http.MethodGet, "/api/donors/eligibility-check/{id}", "evaluate donor eligibility"},
	{http.MethodGet, "/api/donors/statistics", "donor statistics (administrator)"},
}

// HandleIndex handles GET /api.
func HandleIndex(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteSuccess(w, http.StatusOK, "donorhub API", map[string]any{
		"name":      "donorhub",
		"endpoints": apiIndex,
	})
}
