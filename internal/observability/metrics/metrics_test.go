package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/health", "200"))
	assert.Equal(t, float64(3), got)
}

func TestHTTPMetricsUnmatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	r := gin.New()
	r.Use(m.GinMiddleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "unknown", "404"))
	assert.Equal(t, float64(1), got)
}

func TestComplianceMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewComplianceMetrics(reg)

	m.ChainCommitted()
	m.ChainCommitted()
	m.ChainConflict()
	m.Submission("reporting", "accepted")
	m.Submission("reporting", "accepted")
	m.Submission("clearance", "rejected")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.chainCommits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.chainConflicts))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.submissions.WithLabelValues("reporting", "accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.submissions.WithLabelValues("clearance", "rejected")))
}
