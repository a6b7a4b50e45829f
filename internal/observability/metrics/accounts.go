package metrics

import "github.com/prometheus/client_golang/prometheus"

// Breaker state values exported by the state gauge.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// AccountsMetrics tracks the accounts proxy: cache effectiveness and breaker health.
type AccountsMetrics struct {
	CacheLookups        *prometheus.CounterVec
	BreakerState        *prometheus.GaugeVec
	BreakerStateChanges *prometheus.CounterVec
}

// NewAccountsMetrics creates and registers accounts metrics on the given registry.
func NewAccountsMetrics(reg prometheus.Registerer) *AccountsMetrics {
	m := &AccountsMetrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "cache_lookups_total",
			Help:      "Account page cache lookups, by outcome (hit, miss, error).",
		}, []string{"outcome"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"component"}),
		BreakerStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Circuit breaker state transitions by component and new state.",
		}, []string{"component", "state"}),
	}

	reg.MustRegister(m.CacheLookups, m.BreakerState, m.BreakerStateChanges)
	return m
}

// ObserveCacheLookup counts a cache lookup outcome.
func (m *AccountsMetrics) ObserveCacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveBreakerState records a breaker transition.
func (m *AccountsMetrics) ObserveBreakerState(component, state string, value float64) {
	if m == nil {
		return
	}
	m.BreakerStateChanges.WithLabelValues(component, state).Inc()
	m.BreakerState.WithLabelValues(component).Set(value)
}
