package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_AuthFlowCounters(t *testing.T) {
	m := NewMetrics()

	m.AuthFlow(FlowLogin, OutcomeSuccess)
	m.AuthFlow(FlowLogin, OutcomeSuccess)
	m.AuthFlow(FlowLogin, OutcomeRejected)
	m.MailFailure("smtp")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authFlows.WithLabelValues(FlowLogin, OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authFlows.WithLabelValues(FlowLogin, OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mailFailures.WithLabelValues("smtp")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthFlow(FlowRegister, OutcomeSuccess)
		m.MailFailure("log")
	})
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/users/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/abc", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/users/:id", "404")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), `http_requests_total{method="GET",route="/api/users/:id",status="404"} 1`)
}
