package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/target/demobank-api/internal/core"
	domainauth "github.com/target/demobank-api/internal/domain/auth"
	"github.com/target/demobank-api/internal/observability/metrics"
	"github.com/target/demobank-api/internal/ports"
)

// SessionManagerConfig carries the tunables and ambient dependencies of a SessionManager.
type SessionManagerConfig struct {
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *metrics.SessionMetrics

	// SnapshotKey is the storage key holding the serialized identity.
	SnapshotKey string
	// SignInLatency and SignOutLatency simulate a backend round-trip; zero skips the wait.
	SignInLatency  time.Duration
	SignOutLatency time.Duration
	// ErrorTTL is how long a surfaced error lives before clearing itself; zero disables auto-clear.
	ErrorTTL time.Duration
}

// DefaultSessionManagerConfig returns the demo defaults.
func DefaultSessionManagerConfig() SessionManagerConfig {
	return SessionManagerConfig{
		Clock:          clockwork.NewRealClock(),
		SnapshotKey:    "user",
		SignInLatency:  time.Second,
		SignOutLatency: 500 * time.Millisecond,
		ErrorTTL:       5 * time.Second,
	}
}

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Credentials ports.CredentialMatcher // Required
	Storage     ports.SnapshotStore     // Required
	Config      SessionManagerConfig
}

// SessionState is the observable view of a SessionManager.
type SessionState struct {
	User      *domainauth.Identity `json:"user"`
	Loading   bool                 `json:"loading"`
	Error     string               `json:"error,omitempty"`
	ErrorKind domainauth.ErrorKind `json:"error_kind,omitempty"`
}

// SessionManager is the single source of truth for who is signed in on one
// client. Validation and authentication failures are returned as results and
// mirrored into the error field; storage failures are logged and swallowed.
type SessionManager struct {
	credentials ports.CredentialMatcher
	storage     ports.SnapshotStore
	cfg         SessionManagerConfig
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *metrics.SessionMetrics
	updates     *core.Broadcaster[SessionState]

	mu       sync.Mutex
	user     *domainauth.Identity
	loading  bool
	errMsg   string
	errKind  domainauth.ErrorKind
	errGen   uint64
	errTimer clockwork.Timer
	closed   bool
}

// NewSessionManager constructs a SessionManager. Loading starts true until the
// first RecoverSession completes.
func NewSessionManager(opts SessionManagerOptions) (*SessionManager, error) {
	if opts.Credentials == nil {
		return nil, errors.New("CredentialMatcher is required")
	}
	if opts.Storage == nil {
		return nil, errors.New("SnapshotStore is required")
	}

	cfg := opts.Config
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = "user"
	}

	return &SessionManager{
		credentials: opts.Credentials,
		storage:     opts.Storage,
		cfg:         cfg,
		clock:       cfg.Clock,
		logger:      cfg.Logger.With("component", "session_manager"),
		metrics:     cfg.Metrics,
		updates:     core.NewBroadcaster[SessionState](),
		loading:     true,
	}, nil
}

// State returns a copy of the current state.
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Subscribe returns a channel receiving the state after every mutation.
func (m *SessionManager) Subscribe(buffer int) (<-chan SessionState, func()) {
	return m.updates.Subscribe(buffer)
}

// SignIn validates the input, waits the simulated latency, then matches the
// credentials. It never panics and never returns an error: every failure is a
// structured result that is also mirrored into the error field.
func (m *SessionManager) SignIn(ctx context.Context, username, password string) (res domainauth.Result) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.ErrorContext(ctx, "sign-in panicked", "panic", r)
			res = m.fail(domainauth.KindInternal, domainauth.MsgSignInUnavailable)
			m.mutate(func() { m.loading = false })
		}
		m.metrics.ObserveSignIn(signInLabel(res))
	}()

	if msg := domainauth.ValidateSignIn(username, password); msg != "" {
		return m.fail(domainauth.KindValidation, msg)
	}

	m.mutate(func() {
		m.loading = true
		m.clearErrorLocked()
	})
	defer m.mutate(func() { m.loading = false })

	if err := m.sleep(ctx, m.cfg.SignInLatency); err != nil {
		m.logger.ErrorContext(ctx, "sign-in interrupted", "error", err)
		return m.fail(domainauth.KindInternal, domainauth.MsgSignInUnavailable)
	}

	id, ok, err := m.credentials.Match(ctx, username, password)
	if err != nil {
		m.logger.ErrorContext(ctx, "credential match failed", "error", err)
		return m.fail(domainauth.KindInternal, domainauth.MsgSignInUnavailable)
	}
	if !ok {
		return m.fail(domainauth.KindAuthentication, domainauth.MsgInvalidCredentials)
	}

	m.mutate(func() {
		u := id
		m.user = &u
	})
	m.persist(ctx, id)

	out := id
	return domainauth.Result{Success: true, User: &out}
}

// SignOut clears the identity and error, removes the snapshot, then waits the
// simulated latency. It always succeeds for the caller.
func (m *SessionManager) SignOut(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.ErrorContext(ctx, "sign-out panicked", "panic", r)
			m.fail(domainauth.KindInternal, domainauth.MsgSignOutFailed)
		}
		m.mutate(func() { m.loading = false })
		m.metrics.ObserveSignOut()
	}()

	m.mutate(func() {
		m.loading = true
		m.user = nil
		m.clearErrorLocked()
	})

	if err := m.storage.Remove(ctx, m.cfg.SnapshotKey); err != nil {
		m.logger.WarnContext(ctx, "failed to remove session snapshot", "error", err)
	}

	if err := m.sleep(ctx, m.cfg.SignOutLatency); err != nil {
		m.logger.DebugContext(ctx, "sign-out latency interrupted", "error", err)
	}
}

// RecoverSession restores the identity from the stored snapshot. A malformed
// snapshot is discarded and surfaces a session-expired error; a storage read
// failure is logged and treated as no session. Loading always ends false.
func (m *SessionManager) RecoverSession(ctx context.Context) {
	outcome := "empty"
	defer func() {
		if r := recover(); r != nil {
			m.logger.ErrorContext(ctx, "session recovery panicked", "panic", r)
			outcome = "error"
		}
		m.mutate(func() { m.loading = false })
		m.metrics.ObserveRecovery(outcome)
	}()

	raw, err := m.storage.Get(ctx, m.cfg.SnapshotKey)
	switch {
	case errors.Is(err, ports.ErrSnapshotNotFound):
		return
	case err != nil:
		m.logger.WarnContext(ctx, "failed to read session snapshot", "error", err)
		outcome = "storage_error"
		return
	}

	id, err := domainauth.ParseSnapshot(raw)
	if err != nil {
		m.logger.WarnContext(ctx, "discarding malformed session snapshot", "error", err)
		outcome = "expired"
		if rmErr := m.storage.Remove(ctx, m.cfg.SnapshotKey); rmErr != nil {
			m.logger.WarnContext(ctx, "failed to remove malformed session snapshot", "error", rmErr)
		}
		m.mutate(func() {
			m.user = nil
			m.setErrorLocked(domainauth.KindSessionExpired, domainauth.MsgSessionExpired)
		})
		return
	}

	outcome = "restored"
	m.mutate(func() { m.user = &id })
}

// ClearError clears the surfaced error and cancels its pending auto-clear.
func (m *SessionManager) ClearError() {
	m.mutate(m.clearErrorLocked)
}

// Close stops the auto-clear timer and closes every subscription.
func (m *SessionManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopErrorTimerLocked()
	m.mu.Unlock()
	m.updates.Close()
}

func (m *SessionManager) fail(kind domainauth.ErrorKind, msg string) domainauth.Result {
	m.mutate(func() { m.setErrorLocked(kind, msg) })
	return domainauth.Failure(kind, msg)
}

func (m *SessionManager) persist(ctx context.Context, id domainauth.Identity) {
	raw, err := domainauth.MarshalSnapshot(id)
	if err == nil {
		err = m.storage.Set(ctx, m.cfg.SnapshotKey, raw)
	}
	if err != nil {
		m.logger.WarnContext(ctx, "failed to persist session snapshot", "error", err)
	}
}

// sleep waits d on the injected clock. No lock may be held.
func (m *SessionManager) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-m.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutate applies fn under the lock and publishes the resulting state.
func (m *SessionManager) mutate(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
	m.updates.Publish(m.stateLocked())
}

func (m *SessionManager) stateLocked() SessionState {
	st := SessionState{
		Loading:   m.loading,
		Error:     m.errMsg,
		ErrorKind: m.errKind,
	}
	if m.user != nil {
		u := *m.user
		st.User = &u
	}
	return st
}

func (m *SessionManager) setErrorLocked(kind domainauth.ErrorKind, msg string) {
	m.stopErrorTimerLocked()
	m.errGen++
	m.errMsg = msg
	m.errKind = kind
	if m.cfg.ErrorTTL <= 0 || m.closed {
		return
	}
	gen := m.errGen
	m.errTimer = m.clock.AfterFunc(m.cfg.ErrorTTL, func() { m.expireError(gen) })
}

func (m *SessionManager) clearErrorLocked() {
	m.stopErrorTimerLocked()
	m.errGen++
	m.errMsg = ""
	m.errKind = domainauth.KindNone
}

func (m *SessionManager) stopErrorTimerLocked() {
	if m.errTimer != nil {
		m.errTimer.Stop()
		m.errTimer = nil
	}
}

// expireError clears the error set at generation gen. A newer error or a
// manual clear makes it a no-op.
func (m *SessionManager) expireError(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errGen != gen || m.closed {
		return
	}
	m.errTimer = nil
	m.errMsg = ""
	m.errKind = domainauth.KindNone
	m.updates.Publish(m.stateLocked())
}

func signInLabel(res domainauth.Result) string {
	if res.Success {
		return metrics.ResultSuccess
	}
	if res.Kind == domainauth.KindNone {
		return metrics.ResultError
	}
	return string(res.Kind)
}
