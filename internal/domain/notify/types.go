// Package notify holds the notification domain types shared by the
// notification manager and its HTTP surface.
package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity tags a notification for presentation.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Valid reports whether the severity is one of the supported presets.
func (s Severity) Valid() bool {
	switch s {
	case SeveritySuccess, SeverityError, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	v := Severity(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid notification type %q (expected success, error, warning or info)", string(text))
	}
	*s = v
	return nil
}

// RemovalReason records why a notification left the sequence.
type RemovalReason string

const (
	ReasonDismissed RemovalReason = "dismissed"
	ReasonExpired   RemovalReason = "expired"
	ReasonCleared   RemovalReason = "cleared"
)

// Notification is a transient message. Duration zero persists until dismissed.
// Values are never mutated after creation.
type Notification struct {
	ID        string
	Type      Severity
	Title     string
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

// MarshalJSON renders the duration in milliseconds.
func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string    `json:"id"`
		Type      Severity  `json:"type"`
		Title     string    `json:"title"`
		Message   string    `json:"message,omitempty"`
		Duration  int64     `json:"duration"`
		CreatedAt time.Time `json:"created_at"`
	}{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Duration:  n.Duration.Milliseconds(),
		CreatedAt: n.CreatedAt,
	})
}

// Draft is the enqueue input. Empty Type and nil Duration take the manager defaults.
type Draft struct {
	Type     Severity
	Title    string
	Message  string
	Duration *time.Duration
}

// Option adjusts a draft built by the severity wrappers.
type Option func(*Draft)

// WithMessage sets the body text.
func WithMessage(msg string) Option {
	return func(d *Draft) { d.Message = msg }
}

// WithDuration overrides the display duration. Zero persists until dismissed.
func WithDuration(dur time.Duration) Option {
	return func(d *Draft) { d.Duration = &dur }
}

// NewDraft builds a draft for the given severity and title.
func NewDraft(sev Severity, title string, opts ...Option) Draft {
	d := Draft{Type: sev, Title: title}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	return d
}
