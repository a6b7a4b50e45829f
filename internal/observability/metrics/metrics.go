// Package metrics defines the Prometheus collectors exported at /metrics.
// Every recording method is nil-safe so components run unchanged when
// metrics are disabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "demobank"

// Result labels shared by the collectors.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Set bundles every collector group for wiring.
type Set struct {
	HTTP     *HTTPMetrics
	Session  *SessionMetrics
	Notify   *NotificationMetrics
	Accounts *AccountsMetrics
}

// NewSet registers every collector group on reg.
func NewSet(reg prometheus.Registerer) *Set {
	return &Set{
		HTTP:     NewHTTPMetrics(reg),
		Session:  NewSessionMetrics(reg),
		Notify:   NewNotificationMetrics(reg),
		Accounts: NewAccountsMetrics(reg),
	}
}
