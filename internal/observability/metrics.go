package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the auth core counters.  A nil *Metrics is valid and
// records nothing, which keeps unit tests free of registry setup.
type Metrics struct {
	registry *prometheus.Registry

	LoginsTotal           *prometheus.CounterVec
	RefreshTotal          *prometheus.CounterVec
	RateLimitBlockedTotal *prometheus.CounterVec
	OnboardingTotal       *prometheus.CounterVec
	GateRequestsTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all counters on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathlab_auth_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathlab_auth_refresh_total",
				Help: "Refresh token rotations by result",
			},
			[]string{"result"},
		),
		RateLimitBlockedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathlab_auth_ratelimit_blocked_total",
				Help: "Attempts rejected by the attempt limiter",
			},
			[]string{"purpose"},
		),
		OnboardingTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathlab_auth_onboarding_total",
				Help: "Admin onboarding steps by stage and result",
			},
			[]string{"stage", "result"},
		),
		GateRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathlab_auth_gate_requests_total",
				Help: "Edge gate decisions",
			},
			[]string{"decision"},
		),
	}
	registry.MustRegister(
		m.LoginsTotal,
		m.RefreshTotal,
		m.RateLimitBlockedTotal,
		m.OnboardingTotal,
		m.GateRequestsTotal,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Login(result string) {
	if m != nil {
		m.LoginsTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Refresh(result string) {
	if m != nil {
		m.RefreshTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) RateLimited(purpose string) {
	if m != nil {
		m.RateLimitBlockedTotal.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) Onboarding(stage, result string) {
	if m != nil {
		m.OnboardingTotal.WithLabelValues(stage, result).Inc()
	}
}

func (m *Metrics) Gate(decision string) {
	if m != nil {
		m.GateRequestsTotal.WithLabelValues(decision).Inc()
	}
}
