package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics tracks the notification queue lifecycle.
type NotificationMetrics struct {
	Enqueued *prometheus.CounterVec
	Removed  *prometheus.CounterVec
}

// NewNotificationMetrics creates and registers notification metrics on the given registry.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		Enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "enqueued_total",
			Help:      "Total notifications enqueued, by severity.",
		}, []string{"type"}),
		Removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "removed_total",
			Help:      "Total notifications removed, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.Enqueued, m.Removed)
	return m
}

// ObserveEnqueue counts one enqueued notification.
func (m *NotificationMetrics) ObserveEnqueue(severity string) {
	if m == nil {
		return
	}
	m.Enqueued.WithLabelValues(severity).Inc()
}

// ObserveRemoval counts n removals for reason.
func (m *NotificationMetrics) ObserveRemoval(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Removed.WithLabelValues(reason).Add(float64(n))
}
