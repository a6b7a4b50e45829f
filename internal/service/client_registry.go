package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/target/demobank-api/internal/observability/metrics"
	"github.com/target/demobank-api/internal/ports"
)

// ErrEmptyClientID is returned by Acquire when no client id is supplied.
var ErrEmptyClientID = errors.New("client id is required")

// ClientRegistryConfig carries per-client manager settings and ambient deps.
type ClientRegistryConfig struct {
	Session       SessionManagerConfig
	Notifications NotificationManagerConfig
	Metrics       *metrics.SessionMetrics
}

// ClientRegistryOptions groups dependencies for ClientRegistry.
type ClientRegistryOptions struct {
	Credentials ports.CredentialMatcher // Required
	Storage     ports.SnapshotStore     // Required
	Config      ClientRegistryConfig
}

// Client is the workspace of one browser client.
type Client struct {
	ID            string
	Session       *SessionManager
	Notifications *NotificationManager

	recoverOnce sync.Once
	lastSeen    time.Time
	refs        int // guarded by ClientRegistry.mu
}

// ClientRegistry lazily creates and tracks one Client per client id. Each
// client's session snapshot lives under its own key namespace.
type ClientRegistry struct {
	credentials ports.CredentialMatcher
	storage     ports.SnapshotStore
	cfg         ClientRegistryConfig
	clock       clockwork.Clock
	logger      *slog.Logger

	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
}

// NewClientRegistry constructs a ClientRegistry.
func NewClientRegistry(opts ClientRegistryOptions) (*ClientRegistry, error) {
	if opts.Credentials == nil {
		return nil, errors.New("CredentialMatcher is required")
	}
	if opts.Storage == nil {
		return nil, errors.New("SnapshotStore is required")
	}

	cfg := opts.Config
	if cfg.Session.Clock == nil {
		cfg.Session.Clock = clockwork.NewRealClock()
	}
	if cfg.Notifications.Clock == nil {
		cfg.Notifications.Clock = cfg.Session.Clock
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = slog.Default()
	}
	if cfg.Notifications.Logger == nil {
		cfg.Notifications.Logger = cfg.Session.Logger
	}
	if cfg.Session.Metrics == nil {
		cfg.Session.Metrics = cfg.Metrics
	}

	return &ClientRegistry{
		credentials: opts.Credentials,
		storage:     opts.Storage,
		cfg:         cfg,
		clock:       cfg.Session.Clock,
		logger:      cfg.Session.Logger.With("component", "client_registry"),
		clients:     make(map[string]*Client),
	}, nil
}

// Acquire returns the client for id, creating it on first use. A new client
// recovers its session from storage exactly once before it is returned.
// Every successful Acquire must be paired with Release; a held client is never
// evicted.
func (r *ClientRegistry) Acquire(ctx context.Context, id string) (*Client, error) {
	if id == "" {
		return nil, ErrEmptyClientID
	}

	c, err := r.getOrCreate(id)
	if err != nil {
		return nil, err
	}
	// recovery outlives the first request so a cancelled caller cannot lose the snapshot
	c.recoverOnce.Do(func() { c.Session.RecoverSession(context.WithoutCancel(ctx)) })
	return c, nil
}

// Release drops a hold taken by Acquire. The idle clock restarts from the last release.
func (r *ClientRegistry) Release(c *Client) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.refs > 0 {
		c.refs--
	}
	c.lastSeen = r.clock.Now()
}

// Lookup returns an existing client without creating one.
func (r *ClientRegistry) Lookup(id string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

func (r *ClientRegistry) getOrCreate(id string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("client registry is closed")
	}

	now := r.clock.Now()
	if c, ok := r.clients[id]; ok {
		c.lastSeen = now
		c.refs++
		return c, nil
	}

	scfg := r.cfg.Session
	scfg.Logger = scfg.Logger.With("client_id", id)
	sm, err := NewSessionManager(SessionManagerOptions{
		Credentials: r.credentials,
		Storage:     &namespacedStore{inner: r.storage, prefix: clientKeyPrefix(id)},
		Config:      scfg,
	})
	if err != nil {
		return nil, err
	}

	ncfg := r.cfg.Notifications
	ncfg.Logger = ncfg.Logger.With("client_id", id)

	c := &Client{
		ID:            id,
		Session:       sm,
		Notifications: NewNotificationManager(ncfg),
		lastSeen:      now,
		refs:          1,
	}
	r.clients[id] = c
	r.cfg.Metrics.SetActiveClients(len(r.clients))
	r.logger.Debug("client created", "client_id", id)
	return c, nil
}

// EvictIdle closes and forgets clients that are not held and were last released
// more than idleTTL ago. Stored snapshots are kept so a returning client
// recovers its session.
func (r *ClientRegistry) EvictIdle(ctx context.Context, idleTTL time.Duration) int {
	if idleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	cutoff := r.clock.Now().Add(-idleTTL)
	var idle []*Client
	for id, c := range r.clients {
		if c.refs == 0 && c.lastSeen.Before(cutoff) {
			idle = append(idle, c)
			delete(r.clients, id)
		}
	}
	r.cfg.Metrics.SetActiveClients(len(r.clients))
	r.mu.Unlock()

	for _, c := range idle {
		c.close()
		r.logger.DebugContext(ctx, "client evicted", "client_id", c.ID)
	}
	return len(idle)
}

// Count reports how many clients are held in memory.
func (r *ClientRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close closes every client. Later Acquire calls fail.
func (r *ClientRegistry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.cfg.Metrics.SetActiveClients(0)
	r.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (c *Client) close() {
	c.Session.Close()
	c.Notifications.Close()
}

func clientKeyPrefix(id string) string {
	return "clients:" + id + ":"
}

// namespacedStore prefixes every key before delegating.
type namespacedStore struct {
	inner  ports.SnapshotStore
	prefix string
}

func (s *namespacedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *namespacedStore) Set(ctx context.Context, key string, value []byte) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *namespacedStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, s.prefix+key)
}
