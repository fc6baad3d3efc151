package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide HTTP and account metrics.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	UsersCreated      prometheus.Counter
	LoginAttempts     *prometheus.CounterVec
	TokensRevoked     prometheus.Counter
	AuditPublishFails *prometheus.CounterVec
}

// New creates and registers the metrics with reg. Pass
// prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "donorhub_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "donorhub_users_created_total",
			Help: "Total number of user accounts created",
		}),
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}), // outcome: "success", "invalid_credentials", "inactive"
		TokensRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "donorhub_tokens_revoked_total",
			Help: "Access tokens revoked through logout",
		}),
		AuditPublishFails: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_audit_publish_failures_total",
			Help: "Audit events that could not be delivered, by sink",
		}, []string{"sink"}),
	}
}

// ObserveRequest implements the request logger's metrics hook.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) IncrementUsersCreated() {
	if m != nil {
		m.UsersCreated.Inc()
	}
}

func (m *Metrics) IncrementLoginAttempt(outcome string) {
	if m != nil {
		m.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementTokensRevoked() {
	if m != nil {
		m.TokensRevoked.Inc()
	}
}

func (m *Metrics) IncrementAuditPublishFailure(sink string) {
	if m != nil {
		m.AuditPublishFails.WithLabelValues(sink).Inc()
	}
}
