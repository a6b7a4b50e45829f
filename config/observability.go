package config

// ObservabilityConfig groups configuration that controls metrics exposure.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
}

// ObservabilityMetricsConfig controls the Prometheus /metrics endpoint.
type ObservabilityMetricsConfig struct {
	Enabled bool `env:"OBSERVABILITY_METRICS_ENABLED" envDefault:"true"`
}

// IsEnabled returns true when metrics are collected and exposed.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled
}
