// Package metrics exposes the service counters on a private Prometheus registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request authentication outcomes.
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeAnonymous     = "anonymous"
)

// Reasons a presented bearer token did not produce a principal.
const (
	ReasonMalformed      = "malformed"
	ReasonExpired        = "expired"
	ReasonBadSignature   = "bad_signature"
	ReasonUnknownSubject = "unknown_subject"
	ReasonStoreError     = "store_error"
	ReasonPanic          = "panic"
)

type Metrics struct {
	registry *prometheus.Registry

	authOutcomes   *prometheus.CounterVec
	authRejections *prometheus.CounterVec
	loginAttempts  *prometheus.CounterVec
	rosterChanges  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "auth_requests_total",
			Help:      "Requests seen by the authenticator, by outcome.",
		}, []string{"outcome"}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "auth_token_rejections_total",
			Help:      "Bearer tokens that did not yield a principal, by reason.",
		}, []string{"reason"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "login_attempts_total",
			Help:      "Login attempts, by result.",
		}, []string{"result"}),
		rosterChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "roster_changes_total",
			Help:      "Session roster operations, by action and result.",
		}, []string{"action", "result"}),
	}
	reg.MustRegister(
		m.authOutcomes,
		m.authRejections,
		m.loginAttempts,
		m.rosterChanges,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) AuthOutcome(outcome string) {
	if m == nil {
		return
	}
	m.authOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AuthRejected(reason string) {
	if m == nil {
		return
	}
	m.authRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) RosterChange(action, result string) {
	if m == nil {
		return
	}
	m.rosterChanges.WithLabelValues(action, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
