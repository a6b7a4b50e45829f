package config

import (
	"fmt"
	"strings"
	"time"
)

// StorageBackend selects where session snapshots are kept.
type StorageBackend string

const (
	// StorageRedis keeps snapshots in Redis so they survive restarts.
	StorageRedis StorageBackend = "redis"
	// StorageMemory keeps snapshots in process memory.
	StorageMemory StorageBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageBackend.
func (s *StorageBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "redis", "memory":
		*s = StorageBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid SESSION_STORAGE: %q (valid options: redis, memory)", v)
	}
}

// SessionConfig controls per-client sessions: the identifying cookie, snapshot
// storage, error auto-clear, idle eviction and login throttling.
type SessionConfig struct {
	CookieSecret string        `env:"SESSION_COOKIE_SECRET"`
	CookieName   string        `env:"SESSION_COOKIE_NAME"    envDefault:"demobank_client"`
	CookieMaxAge time.Duration `env:"SESSION_COOKIE_MAX_AGE" envDefault:"720h"`

	Storage StorageBackend `env:"SESSION_STORAGE" envDefault:"redis"`
	// SnapshotKey is the storage key of the persisted identity.
	SnapshotKey string `env:"SESSION_SNAPSHOT_KEY" envDefault:"user"`
	// SnapshotTTL bounds how long a stored identity survives in Redis. Zero keeps it forever.
	SnapshotTTL time.Duration `env:"SESSION_SNAPSHOT_TTL" envDefault:"720h"`

	// ErrorTTL is how long a session error stays visible before it clears itself.
	ErrorTTL time.Duration `env:"SESSION_ERROR_TTL" envDefault:"5s"`

	// IdleTTL is how long an untouched client workspace is kept in memory.
	IdleTTL        time.Duration `env:"SESSION_IDLE_TTL"        envDefault:"30m"`
	ReaperInterval time.Duration `env:"SESSION_REAPER_INTERVAL" envDefault:"1m"`

	// LoginRate is sign-in attempts per second per client; zero disables throttling.
	LoginRate  float64 `env:"SESSION_LOGIN_RATE"  envDefault:"0.2"`
	LoginBurst int     `env:"SESSION_LOGIN_BURST" envDefault:"5"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	s.CookieName = strings.TrimSpace(s.CookieName)
	if s.CookieName == "" {
		s.CookieName = "demobank_client"
	}
	if s.CookieMaxAge < time.Minute {
		s.CookieMaxAge = time.Minute
	}
	if s.Storage == "" {
		s.Storage = StorageRedis
	}
	if s.SnapshotKey = strings.TrimSpace(s.SnapshotKey); s.SnapshotKey == "" {
		s.SnapshotKey = "user"
	}
	if s.SnapshotTTL < 0 {
		s.SnapshotTTL = 0
	}
	if s.ErrorTTL < 0 {
		s.ErrorTTL = 0
	}
	if s.IdleTTL < time.Minute {
		s.IdleTTL = time.Minute
	}
	if s.ReaperInterval < time.Second {
		s.ReaperInterval = time.Second
	}
	if s.LoginRate < 0 {
		s.LoginRate = 0
	}
	if s.LoginBurst < 1 {
		s.LoginBurst = 1
	}
}
