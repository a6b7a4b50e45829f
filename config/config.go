package config

import (
	"errors"
	"os"
	"strings"
)

// minCookieSecretLen is the shortest SESSION_COOKIE_SECRET accepted; securecookie
// recommends 32 or 64 byte hash keys.
const minCookieSecretLen = 32

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: demo users and simulated latency
//   - session.go: client cookie, snapshot storage and reaper
//   - notifications.go: notification display durations
//   - database.go: Postgres, Redis and cache configuration
//   - accounts.go: accounts proxy paging and circuit breaker
//   - http.go: HTTP server configuration
//   - services.go: service mode selection
type AppConfig struct {
	// IsDev controls development mode behavior (random cookie secret, text logs).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Auth          AuthConfig
	Session       SessionConfig
	Notifications NotificationsConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig

	Accounts AccountsConfig

	// HTTP server configuration
	HTTP HTTPConfig

	// Services is a comma-delimited list of enabled services (http, reaper).
	Services string `env:"SERVICES" envDefault:"http,reaper"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.HTTP.Sanitize()
	c.Auth.Sanitize()
	c.Session.Sanitize()
	c.Notifications.Sanitize()
	c.Cache.Sanitize()
	c.Accounts.Sanitize()

	c.detectDevMode()
}

// Validate reports configuration that must stop startup. Outside dev mode the
// client cookie secret is mandatory.
func (c *AppConfig) Validate() error {
	if _, err := c.GetEnabledServices(); err != nil {
		return err
	}
	if _, err := c.Auth.Credentials(); err != nil {
		return err
	}
	if c.IsDev {
		return nil
	}
	switch n := len(c.Session.CookieSecret); {
	case n == 0:
		return errors.New("SESSION_COOKIE_SECRET is required outside development mode")
	case n < minCookieSecretLen:
		return errors.New("SESSION_COOKIE_SECRET must be at least 32 bytes")
	}
	return nil
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsReaperEnabled returns true if the client reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeReaper]
}
