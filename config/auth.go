package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/target/demobank-api/internal/domain/auth"
)

// ParseDemoUsers reads the static credential list used by the demo sign-in
// flow: `id|username|password|name` records separated by ';'.
func ParseDemoUsers(raw string) ([]domainauth.Credential, error) {
	var out []domainauth.Credential
	seen := make(map[string]bool)
	for _, rec := range strings.Split(raw, ";") {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		parts := strings.Split(rec, "|")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid demo user %q (expected id|username|password|name)", rec)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid demo user id %q", parts[0])
		}
		c := domainauth.Credential{
			ID:       id,
			Username: strings.TrimSpace(parts[1]),
			Password: parts[2],
			Name:     strings.TrimSpace(parts[3]),
		}
		if c.Username == "" || c.Password == "" || c.Name == "" {
			return nil, fmt.Errorf("demo user %d: username, password and name are required", id)
		}
		if seen[c.Username] {
			return nil, fmt.Errorf("duplicate demo user %q", c.Username)
		}
		seen[c.Username] = true
		out = append(out, c)
	}
	return out, nil
}

// AuthConfig groups the demo sign-in configuration.
type AuthConfig struct {
	// DemoUsers replaces the built-in demo users when set. See ParseDemoUsers.
	DemoUsers string `env:"DEMO_USERS"`

	// SignInLatency and SignOutLatency simulate a remote identity provider.
	SignInLatency  time.Duration `env:"AUTH_SIGN_IN_LATENCY"  envDefault:"1s"`
	SignOutLatency time.Duration `env:"AUTH_SIGN_OUT_LATENCY" envDefault:"500ms"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	a.DemoUsers = strings.TrimSpace(a.DemoUsers)
	if a.SignInLatency < 0 {
		a.SignInLatency = 0
	}
	if a.SignOutLatency < 0 {
		a.SignOutLatency = 0
	}
}

// Credentials returns the configured demo users, or the built-in pair when
// DEMO_USERS is unset.
func (a *AuthConfig) Credentials() ([]domainauth.Credential, error) {
	if a.DemoUsers == "" {
		return domainauth.DefaultCredentials(), nil
	}
	users, err := ParseDemoUsers(a.DemoUsers)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errors.New("DEMO_USERS contains no users")
	}
	return users, nil
}
