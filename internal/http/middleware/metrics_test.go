package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndPathFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())

	// Body-bearing route: response size is observed.
	r.GET("/catalog", func(c *gin.Context) {
		c.String(http.StatusOK, "rows")
	})
	// Status-only route: size stays -1 and the size histogram is skipped.
	r.GET("/accepted", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	// Read baselines first; the vectors are process-global.
	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/catalog", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/unrouted", "404"))

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/catalog", http.StatusOK},
		{"/unrouted", http.StatusNotFound}, // no route match -> raw URL label
		{"/accepted", http.StatusNoContent},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("GET %s -> %d; want %d", tc.path, w.Code, tc.want)
		}
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/catalog", "200")); got != baseOK+1 {
		t.Fatalf("counter /catalog 200 = %v; want %v", got, baseOK+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/unrouted", "404")); got != base404+1 {
		t.Fatalf("counter 404 fallback = %v; want %v", got, base404+1)
	}

	// All requests finished, so the gauge must be back to zero.
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}
