package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"donorhub/pkg/testutil"
)

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	testutil.Given(t, "a dependency slower than the health timeout", func(t *testing.T) {
		h := NewHealthHandler(logger, map[string]HealthCheck{
			"postgres": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		})
		h.timeout = 10 * time.Millisecond

		testutil.When(t, "calling GET /health", func(t *testing.T) {
			rr := testutil.DoRequest(http.HandlerFunc(h.HandleHealth), testutil.NewRequest(t, http.MethodGet, "/health"))

			testutil.Then(t, "it reports the dependency as unavailable", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
				body := testutil.UnmarshalResponse[healthResponse](t, rr)
				assert.Equal(t, "unhealthy", body.Status)
				assert.Equal(t, "unavailable", body.Checks["postgres"])
			})
		})
	})

	testutil.Given(t, "no configured dependencies", func(t *testing.T) {
		h := NewHealthHandler(logger, nil)

		testutil.When(t, "calling GET /health", func(t *testing.T) {
			rr := testutil.DoRequest(http.HandlerFunc(h.HandleHealth), testutil.NewRequest(t, http.MethodGet, "/health"))

			testutil.Then(t, "it is healthy", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				testutil.AssertJSONContains(t, rr, "status", "healthy")
			})
		})
	})
}

func TestHandleIndex(t *testing.T) {
	testutil.Given(t, "the API index", func(t *testing.T) {
		rr := testutil.DoRequest(http.HandlerFunc(HandleIndex), testutil.NewRequest(t, http.MethodGet, "/api"))

		testutil.Then(t, "it lists every donor and auth route", func(t *testing.T) {
			testutil.AssertStatusOK(t, rr)
			type index struct {
				Name      string     `json:"name"`
				Endpoints []endpoint `json:"endpoints"`
			}
			data := testutil.UnmarshalData[index](t, rr)
			assert.Equal(t, "donorhub", data.Name)
			assert.Len(t, data.Endpoints, len(apiIndex))
			assert.Contains(t, data.Endpoints, endpoint{http.MethodGet, "/api/donors/statistics", "donor statistics (administrator)"})
		})
	})
}
