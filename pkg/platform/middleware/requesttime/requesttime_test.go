package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"donorhub/pkg/requestcontext"
)

func TestMiddlewareWithClock(t *testing.T) {
	pinned := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	var first, second time.Time
	h := MiddlewareWithClock(func() time.Time { return pinned })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		second = requestcontext.Now(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, pinned, first)
	assert.Equal(t, first, second)
}
