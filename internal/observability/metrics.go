package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for auth flow counters.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Flow labels.
const (
	FlowRegister = "register"
	FlowLogin    = "login"
	FlowForgot   = "forgot_password"
	FlowReset    = "reset_password"
	FlowLogout   = "logout"
)

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on the default one.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg          *prometheus.Registry
	authFlows    *prometheus.CounterVec
	mailFailures *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		authFlows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "user_auth_flow_total",
			Help: "Auth flow attempts by flow and outcome",
		}, []string{"flow", "outcome"}),
		mailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "user_auth_mail_failures_total",
			Help: "Password reset emails that could not be handed off",
		}, []string{"driver"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.reg.MustRegister(
		m.authFlows,
		m.mailFailures,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) AuthFlow(flow, outcome string) {
	if m == nil {
		return
	}
	m.authFlows.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) MailFailure(driver string) {
	if m == nil {
		return
	}
	m.mailFailures.WithLabelValues(driver).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records request counts and latency keyed by the matched route
// template, so path parameters never blow up label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
