package config

import "time"

// NotificationsConfig sets how long notifications stay on screen.
type NotificationsConfig struct {
	DefaultDuration time.Duration `env:"NOTIFY_DEFAULT_DURATION" envDefault:"5s"`
	ErrorDuration   time.Duration `env:"NOTIFY_ERROR_DURATION"   envDefault:"7s"`
}

// Sanitize applies guardrails to notification durations. Zero keeps
// notifications until dismissed.
func (n *NotificationsConfig) Sanitize() {
	if n.DefaultDuration < 0 {
		n.DefaultDuration = 0
	}
	if n.ErrorDuration < 0 {
		n.ErrorDuration = 0
	}
}
