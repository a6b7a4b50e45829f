package service

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/target/demobank-api/internal/core"
	"github.com/target/demobank-api/internal/domain/notify"
	"github.com/target/demobank-api/internal/observability/metrics"
)

// NotificationManagerConfig configures a NotificationManager. Zero durations
// take the demo defaults.
type NotificationManagerConfig struct {
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *metrics.NotificationMetrics

	DefaultDuration time.Duration
	ErrorDuration   time.Duration
}

const (
	defaultNotificationDuration = 5 * time.Second
	defaultErrorDuration        = 7 * time.Second
)

type notificationEntry struct {
	n     notify.Notification
	timer clockwork.Timer
}

// NotificationManager keeps the ordered sequence of transient notifications
// for one client. Each notification with a positive duration owns a timer that
// removes it on expiry; dismissing it or clearing the sequence stops the timer.
type NotificationManager struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *metrics.NotificationMetrics
	cfg     NotificationManagerConfig
	updates *core.Broadcaster[[]notify.Notification]

	mu      sync.Mutex
	entries []*notificationEntry
	closed  bool
}

// NewNotificationManager creates an empty manager.
func NewNotificationManager(cfg NotificationManagerConfig) *NotificationManager {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = defaultNotificationDuration
	}
	if cfg.ErrorDuration <= 0 {
		cfg.ErrorDuration = defaultErrorDuration
	}
	return &NotificationManager{
		clock:   cfg.Clock,
		logger:  cfg.Logger.With("component", "notification_manager"),
		metrics: cfg.Metrics,
		cfg:     cfg,
		updates: core.NewBroadcaster[[]notify.Notification](),
	}
}

// Enqueue appends a notification and returns its id. An empty type defaults to
// info and a nil duration to the configured default. A duration of zero or less
// keeps the notification until it is dismissed.
func (m *NotificationManager) Enqueue(d notify.Draft) string {
	sev := d.Type
	if sev == "" {
		sev = notify.SeverityInfo
	}
	dur := m.cfg.DefaultDuration
	if d.Duration != nil {
		dur = max(*d.Duration, 0)
	}

	now := m.clock.Now()
	e := &notificationEntry{n: notify.Notification{
		ID:        newNotificationID(now),
		Type:      sev,
		Title:     d.Title,
		Message:   d.Message,
		Duration:  dur,
		CreatedAt: now,
	}}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.logger.Debug("enqueue after close ignored", "title", d.Title)
		return e.n.ID
	}
	if dur > 0 {
		e.timer = m.clock.AfterFunc(dur, func() { m.expire(e) })
	}
	m.entries = append(m.entries, e)
	m.metrics.ObserveEnqueue(string(sev))
	m.publishLocked()
	return e.n.ID
}

// Dequeue removes the notification with the given id. Unknown ids are ignored.
func (m *NotificationManager) Dequeue(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.IndexFunc(m.entries, func(e *notificationEntry) bool { return e.n.ID == id })
	if idx < 0 {
		return
	}
	m.removeLocked(idx)
	m.metrics.ObserveRemoval(string(notify.ReasonDismissed), 1)
	m.publishLocked()
}

// ClearAll empties the sequence and stops every pending timer.
func (m *NotificationManager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	m.stopAllLocked()
	if n == 0 {
		return
	}
	m.metrics.ObserveRemoval(string(notify.ReasonCleared), n)
	m.publishLocked()
}

// ShowSuccess enqueues a success notification.
func (m *NotificationManager) ShowSuccess(title string, opts ...notify.Option) string {
	return m.Enqueue(notify.NewDraft(notify.SeveritySuccess, title, opts...))
}

// ShowError enqueues an error notification. Errors stay longer unless a
// duration is supplied.
func (m *NotificationManager) ShowError(title string, opts ...notify.Option) string {
	d := notify.NewDraft(notify.SeverityError, title, opts...)
	if d.Duration == nil {
		dur := m.cfg.ErrorDuration
		d.Duration = &dur
	}
	return m.Enqueue(d)
}

// ShowWarning enqueues a warning notification.
func (m *NotificationManager) ShowWarning(title string, opts ...notify.Option) string {
	return m.Enqueue(notify.NewDraft(notify.SeverityWarning, title, opts...))
}

// ShowInfo enqueues an info notification.
func (m *NotificationManager) ShowInfo(title string, opts ...notify.Option) string {
	return m.Enqueue(notify.NewDraft(notify.SeverityInfo, title, opts...))
}

// List returns the visible notifications in insertion order.
func (m *NotificationManager) List() []notify.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked()
}

// Len reports how many notifications are visible.
func (m *NotificationManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Subscribe returns a channel receiving the full sequence after every change.
func (m *NotificationManager) Subscribe(buffer int) (<-chan []notify.Notification, func()) {
	return m.updates.Subscribe(buffer)
}

// Close stops all timers and subscriptions. Later enqueues are ignored.
func (m *NotificationManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopAllLocked()
	m.mu.Unlock()
	m.updates.Close()
}

// expire removes e if it is still visible. A firing that lost the race with
// Dequeue or ClearAll finds nothing to do.
func (m *NotificationManager) expire(e *notificationEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.Index(m.entries, e)
	if idx < 0 {
		return
	}
	m.entries = slices.Delete(m.entries, idx, idx+1)
	e.timer = nil
	m.metrics.ObserveRemoval(string(notify.ReasonExpired), 1)
	m.publishLocked()
}

func (m *NotificationManager) removeLocked(idx int) {
	e := m.entries[idx]
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	m.entries = slices.Delete(m.entries, idx, idx+1)
}

func (m *NotificationManager) stopAllLocked() {
	for _, e := range m.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	m.entries = nil
}

func (m *NotificationManager) listLocked() []notify.Notification {
	out := make([]notify.Notification, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.n
	}
	return out
}

func (m *NotificationManager) publishLocked() {
	m.updates.Publish(m.listLocked())
}

func newNotificationID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}
