package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics tracks sign-in outcomes and the per-client workspaces.
type SessionMetrics struct {
	SignIns       *prometheus.CounterVec
	SignOuts      prometheus.Counter
	Recoveries    *prometheus.CounterVec
	ActiveClients prometheus.Gauge
	Evictions     prometheus.Counter
}

// NewSessionMetrics creates and registers session metrics on the given registry.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		SignIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "sign_ins_total",
			Help:      "Total sign-in attempts, by result kind.",
		}, []string{"result"}),
		SignOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "sign_outs_total",
			Help:      "Total sign-outs.",
		}),
		Recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "recoveries_total",
			Help:      "Total session recoveries, by outcome.",
		}, []string{"outcome"}),
		ActiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active_clients",
			Help:      "Number of client workspaces held in memory.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "client_evictions_total",
			Help:      "Total idle client workspaces evicted.",
		}),
	}

	reg.MustRegister(m.SignIns, m.SignOuts, m.Recoveries, m.ActiveClients, m.Evictions)
	return m
}

// ObserveSignIn counts one attempt. result is "success" or an error kind.
func (m *SessionMetrics) ObserveSignIn(result string) {
	if m == nil {
		return
	}
	m.SignIns.WithLabelValues(result).Inc()
}

// ObserveSignOut counts one sign-out.
func (m *SessionMetrics) ObserveSignOut() {
	if m == nil {
		return
	}
	m.SignOuts.Inc()
}

// ObserveRecovery counts one recovery: "restored", "empty", "expired" or "storage_error".
func (m *SessionMetrics) ObserveRecovery(outcome string) {
	if m == nil {
		return
	}
	m.Recoveries.WithLabelValues(outcome).Inc()
}

// SetActiveClients records the current workspace count.
func (m *SessionMetrics) SetActiveClients(n int) {
	if m == nil {
		return
	}
	m.ActiveClients.Set(float64(n))
}

// AddEvictions counts evicted workspaces.
func (m *SessionMetrics) AddEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Evictions.Add(float64(n))
}
