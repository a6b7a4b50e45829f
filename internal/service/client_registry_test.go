package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/demobank-api/internal/adapters/credentials"
	domainauth "github.com/target/demobank-api/internal/domain/auth"
	"github.com/target/demobank-api/internal/domain/notify"
	mocks "github.com/target/demobank-api/internal/mocks/auth"
	"github.com/target/demobank-api/internal/observability/metrics"
)

func newTestRegistry(t *testing.T, sm *metrics.SessionMetrics) (*ClientRegistry, *mocks.FailingSnapshotStore, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	store := mocks.NewFailingSnapshotStore()

	scfg := DefaultSessionManagerConfig()
	scfg.Clock = fc
	scfg.SignInLatency = 0
	scfg.SignOutLatency = 0

	r, err := NewClientRegistry(ClientRegistryOptions{
		Credentials: credentials.NewStaticMatcher(domainauth.DefaultCredentials()),
		Storage:     store,
		Config:      ClientRegistryConfig{Session: scfg, Metrics: sm},
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, store, fc
}

func TestClientRegistry_AcquireCreatesOnce(t *testing.T) {
	r, store, _ := newTestRegistry(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	got := make([]*Client, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.Acquire(ctx, "client-a")
			assert.NoError(t, err)
			got[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range got {
		assert.Same(t, got[0], c)
	}
	assert.Equal(t, 1, r.Count())

	gets, _, _ := store.Calls()
	assert.Equal(t, 1, gets, "recovery runs exactly once per client")
	assert.False(t, got[0].Session.State().Loading)
}

func TestClientRegistry_AcquireRejectsEmptyID(t *testing.T) {
	r, _, _ := newTestRegistry(t, nil)
	_, err := r.Acquire(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyClientID)
}

func TestClientRegistry_SnapshotsAreNamespaced(t *testing.T) {
	r, store, _ := newTestRegistry(t, nil)
	ctx := context.Background()

	a, err := r.Acquire(ctx, "a")
	require.NoError(t, err)
	b, err := r.Acquire(ctx, "b")
	require.NoError(t, err)

	res := a.Session.SignIn(ctx, "demo@bank.com", "demo123")
	require.True(t, res.Success)

	_, ok := store.Raw("clients:a:user")
	assert.True(t, ok)
	_, ok = store.Raw("clients:b:user")
	assert.False(t, ok)
	assert.Nil(t, b.Session.State().User)
}

func TestClientRegistry_RecoversExistingSnapshot(t *testing.T) {
	r, store, _ := newTestRegistry(t, nil)
	raw, err := domainauth.MarshalSnapshot(demoUser)
	require.NoError(t, err)
	store.Put("clients:returning:user", raw)

	c, err := r.Acquire(context.Background(), "returning")
	require.NoError(t, err)

	st := c.Session.State()
	require.NotNil(t, st.User)
	assert.Equal(t, demoUser, *st.User)
}

func TestClientRegistry_EvictIdle(t *testing.T) {
	reg := prometheus.NewRegistry()
	sm := metrics.NewSessionMetrics(reg)
	r, store, fc := newTestRegistry(t, sm)
	ctx := context.Background()

	idle, err := r.Acquire(ctx, "idle")
	require.NoError(t, err)
	require.True(t, idle.Session.SignIn(ctx, "demo@bank.com", "demo123").Success)
	idleUpdates, _ := idle.Session.Subscribe(1)
	r.Release(idle)

	fc.Advance(20 * time.Minute)
	active, err := r.Acquire(ctx, "active")
	require.NoError(t, err)
	r.Release(active)
	assert.Equal(t, 2.0, testutil.ToFloat64(sm.ActiveClients))

	fc.Advance(15 * time.Minute)
	evicted := r.EvictIdle(ctx, 30*time.Minute)

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, r.Count())
	_, ok := r.Lookup("idle")
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.ActiveClients))

	// drain then expect the closed channel
	for range idleUpdates {
	}

	_, ok = store.Raw("clients:idle:user")
	assert.True(t, ok, "snapshot survives eviction")

	back, err := r.Acquire(ctx, "idle")
	require.NoError(t, err)
	assert.NotSame(t, idle, back)
	require.NotNil(t, back.Session.State().User)
}

func TestClientRegistry_EvictIdleSkipsHeldClients(t *testing.T) {
	r, _, fc := newTestRegistry(t, nil)
	ctx := context.Background()

	c, err := r.Acquire(ctx, "streaming")
	require.NoError(t, err)
	lists, cancel := c.Notifications.Subscribe(4)
	defer cancel()
	c.Notifications.ShowInfo("pinned", notify.WithDuration(0))

	fc.Advance(31 * time.Minute)
	assert.Zero(t, r.EvictIdle(ctx, 30*time.Minute))

	again, err := r.Acquire(ctx, "streaming")
	require.NoError(t, err)
	assert.Same(t, c, again)
	assert.Len(t, c.Notifications.List(), 1)
	select {
	case _, ok := <-lists:
		assert.True(t, ok, "subscription stays open while the client is held")
	default:
	}

	// idle time counts from the last release, not the first acquire
	r.Release(again)
	r.Release(c)
	fc.Advance(29 * time.Minute)
	assert.Zero(t, r.EvictIdle(ctx, 30*time.Minute))
	fc.Advance(2 * time.Minute)
	assert.Equal(t, 1, r.EvictIdle(ctx, 30*time.Minute))
}

// ctxStore fails reads once the caller's context is done, like a network store.
type ctxStore struct {
	*mocks.FailingSnapshotStore
}

func (s ctxStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.FailingSnapshotStore.Get(ctx, key)
}

func TestClientRegistry_RecoveryIgnoresCallerCancellation(t *testing.T) {
	store := ctxStore{mocks.NewFailingSnapshotStore()}
	raw, err := domainauth.MarshalSnapshot(demoUser)
	require.NoError(t, err)
	store.Put("clients:hasty:user", raw)

	scfg := DefaultSessionManagerConfig()
	scfg.Clock = clockwork.NewFakeClock()
	r, err := NewClientRegistry(ClientRegistryOptions{
		Credentials: credentials.NewStaticMatcher(domainauth.DefaultCredentials()),
		Storage:     store,
		Config:      ClientRegistryConfig{Session: scfg},
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := r.Acquire(ctx, "hasty")
	require.NoError(t, err)
	defer r.Release(c)

	st := c.Session.State()
	require.NotNil(t, st.User)
	assert.Equal(t, demoUser, *st.User)
}

func TestClientRegistry_EvictIdleZeroTTL(t *testing.T) {
	r, _, fc := newTestRegistry(t, nil)
	c, err := r.Acquire(context.Background(), "a")
	require.NoError(t, err)
	r.Release(c)
	fc.Advance(time.Hour)

	assert.Zero(t, r.EvictIdle(context.Background(), 0))
	assert.Equal(t, 1, r.Count())
}

func TestClientRegistry_Close(t *testing.T) {
	r, _, _ := newTestRegistry(t, nil)
	c, err := r.Acquire(context.Background(), "a")
	require.NoError(t, err)
	updates, _ := c.Notifications.Subscribe(1)

	r.Close()
	r.Close()

	_, ok := <-updates
	assert.False(t, ok)
	assert.Zero(t, r.Count())
	_, err = r.Acquire(context.Background(), "a")
	require.Error(t, err)
}
