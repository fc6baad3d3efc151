package request

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorhub/pkg/requestcontext"
)

type recordedRequest struct {
	method, route string
	status        int
}

type fakeMetrics struct {
	observed []recordedRequest
}

func (f *fakeMetrics) ObserveRequest(method, route string, status int, _ time.Duration) {
	f.observed = append(f.observed, recordedRequest{method, route, status})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("mints an ID when absent", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))
	})

	t.Run("propagates a caller ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rr.Header().Get(HeaderRequestID))
	})
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"internal_error"`)
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	metrics := &fakeMetrics{}

	r := chi.NewRouter()
	r.Use(Logger(logger, metrics))
	r.Get("/api/donors/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/donors/42", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, metrics.observed, 1)
	assert.Equal(t, recordedRequest{http.MethodGet, "/api/donors/{id}", http.StatusTeapot}, metrics.observed[0])
	assert.Contains(t, buf.String(), "browser=Chrome")
	assert.Contains(t, buf.String(), "status=418")
}
