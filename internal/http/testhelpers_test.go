package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/demobank-api/internal/adapters/credentials"
	"github.com/target/demobank-api/internal/adapters/memory"
	"github.com/target/demobank-api/internal/domain/auth"
	"github.com/target/demobank-api/internal/domain/model"
	"github.com/target/demobank-api/internal/service"
)

// stubAccounts is a canned AccountsService.
type stubAccounts struct {
	accounts  []*model.Account
	err       error
	lastLimit int
}

func (s *stubAccounts) List(_ context.Context, limit int) ([]*model.Account, error) {
	s.lastLimit = limit
	return s.accounts, s.err
}

type testServer struct {
	*httptest.Server
	Client   *http.Client
	Clients  *service.ClientRegistry
	Accounts *stubAccounts
}

type testServerOptions struct {
	limiter *RateLimiter
	ready   []HealthChecker
}

func newTestServer(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scfg := service.DefaultSessionManagerConfig()
	scfg.SignInLatency = 0
	scfg.SignOutLatency = 0
	scfg.Logger = logger

	registry, err := service.NewClientRegistry(service.ClientRegistryOptions{
		Credentials: credentials.NewStaticMatcher(auth.DefaultCredentials()),
		Storage:     memory.NewSnapshotStore(),
		Config:      service.ClientRegistryConfig{Session: scfg},
	})
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	accounts := &stubAccounts{}
	handler := NewRouter(RouterServices{
		Clients:      registry,
		Accounts:     accounts,
		CookieStore:  NewCookieStore(CookieConfig{Secret: []byte("0123456789abcdef0123456789abcdef"), MaxAge: time.Hour}),
		LoginLimiter: opts.limiter,
		Ready:        opts.ready,
		CORSOrigins:  []string{"http://localhost:5173"},
		Logger:       logger,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		Server:   srv,
		Client:   &http.Client{Jar: jar, Timeout: 5 * time.Second},
		Clients:  registry,
		Accounts: accounts,
	}
}

// do sends a JSON request and decodes the JSON response into out when non-nil.
func (ts *testServer) do(t *testing.T, method, path string, payload, out any) *http.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, ts.URL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp
}

func (ts *testServer) login(t *testing.T) {
	t.Helper()
	var res auth.Result
	resp := ts.do(t, http.MethodPost, "/api/session/login",
		map[string]string{"username": "demo@bank.com", "password": "demo123"}, &res)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, res.Success)
}
