package config

import "time"

// AccountsConfig controls the accounts proxy.
type AccountsConfig struct {
	DefaultLimit int `env:"ACCOUNTS_DEFAULT_LIMIT" envDefault:"20"`
	MaxLimit     int `env:"ACCOUNTS_MAX_LIMIT"     envDefault:"100"`

	Breaker BreakerConfig `envPrefix:"ACCOUNTS_BREAKER_"`
}

// BreakerConfig tunes the circuit breaker in front of the accounts database.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32 `env:"FAILURE_THRESHOLD" envDefault:"5"`
	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32 `env:"MAX_REQUESTS" envDefault:"1"`
	// Interval resets the closed-state failure counts; zero never resets.
	Interval time.Duration `env:"INTERVAL" envDefault:"1m"`
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to accounts configuration values.
func (a *AccountsConfig) Sanitize() {
	if a.MaxLimit < 1 {
		a.MaxLimit = 100
	}
	if a.DefaultLimit < 1 {
		a.DefaultLimit = 20
	}
	if a.DefaultLimit > a.MaxLimit {
		a.DefaultLimit = a.MaxLimit
	}
	if a.Breaker.FailureThreshold < 1 {
		a.Breaker.FailureThreshold = 1
	}
	if a.Breaker.MaxRequests < 1 {
		a.Breaker.MaxRequests = 1
	}
	if a.Breaker.Interval < 0 {
		a.Breaker.Interval = 0
	}
	if a.Breaker.Timeout < time.Second {
		a.Breaker.Timeout = time.Second
	}
}
