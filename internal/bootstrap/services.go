package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/target/demobank-api/config"
	"github.com/target/demobank-api/internal/adapters/credentials"
	"github.com/target/demobank-api/internal/adapters/memory"
	redisadapter "github.com/target/demobank-api/internal/adapters/redis"
	"github.com/target/demobank-api/internal/core"
	"github.com/target/demobank-api/internal/data"
	httpx "github.com/target/demobank-api/internal/http"
	"github.com/target/demobank-api/internal/observability/metrics"
	"github.com/target/demobank-api/internal/ports"
	"github.com/target/demobank-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Clients       *service.ClientRegistry
	Reaper        *service.ClientReaperService
	Accounts      *service.AccountService
	CookieStore   sessions.Store
	LoginLimiter  *httpx.RateLimiter
	Ready         []httpx.HealthChecker
	Observability ObservabilityContainer
	Clock         clockwork.Clock
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	Metrics *metrics.Set // nil when metrics are disabled
	Handler http.Handler // serves /metrics; nil when disabled
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // nil when neither snapshots nor cache use Redis
	Clock       clockwork.Clock       // defaults to the real clock
	Registerer  prometheus.Registerer // optional; a fresh registry is created when nil
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Accounts  *data.AccountRepo
	Cache     *data.RedisCacheRepo
	Snapshots ports.SnapshotStore
}

// NeedsRedis reports whether the configuration uses Redis for anything.
func NeedsRedis(cfg *config.AppConfig) bool {
	return cfg.Session.Storage == config.StorageRedis || cfg.Cache.AccountsTTL > 0
}

// buildObservability registers the Prometheus collectors when enabled.
func buildObservability(cfg config.ObservabilityConfig, reg prometheus.Registerer) ObservabilityContainer {
	if !cfg.Metrics.IsEnabled() {
		return ObservabilityContainer{}
	}
	if reg == nil {
		r := metrics.NewRegistry()
		return ObservabilityContainer{Metrics: metrics.NewSet(r), Handler: metrics.Handler(r)}
	}
	var handler http.Handler
	if r, ok := reg.(*prometheus.Registry); ok {
		handler = metrics.Handler(r)
	}
	return ObservabilityContainer{Metrics: metrics.NewSet(reg), Handler: handler}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(deps *ServiceDeps) (*serviceRepositories, error) {
	repos := &serviceRepositories{Accounts: data.NewAccountRepo(deps.DB)}
	cfg := deps.Config

	if deps.RedisClient != nil && cfg.Cache.AccountsTTL > 0 {
		repos.Cache = data.NewRedisCacheRepo(deps.RedisClient)
	}

	switch cfg.Session.Storage {
	case config.StorageMemory:
		repos.Snapshots = memory.NewSnapshotStore()
	default:
		if deps.RedisClient == nil {
			return nil, errors.New("redis session storage requires a redis client")
		}
		repos.Snapshots = redisadapter.NewSnapshotStore(deps.RedisClient, redisadapter.SnapshotStoreOptions{
			TTL: cfg.Session.SnapshotTTL,
		})
	}
	return repos, nil
}

func newClientRegistry(deps *ServiceDeps, repos *serviceRepositories, obs ObservabilityContainer) (*service.ClientRegistry, error) {
	cfg := deps.Config
	users, err := cfg.Auth.Credentials()
	if err != nil {
		return nil, fmt.Errorf("demo users: %w", err)
	}

	var sessionMetrics *metrics.SessionMetrics
	var notifyMetrics *metrics.NotificationMetrics
	if obs.Metrics != nil {
		sessionMetrics = obs.Metrics.Session
		notifyMetrics = obs.Metrics.Notify
	}

	return service.NewClientRegistry(service.ClientRegistryOptions{
		Credentials: credentials.NewStaticMatcher(users),
		Storage:     repos.Snapshots,
		Config: service.ClientRegistryConfig{
			Session: service.SessionManagerConfig{
				Clock:          deps.Clock,
				Logger:         deps.Logger,
				SnapshotKey:    cfg.Session.SnapshotKey,
				SignInLatency:  cfg.Auth.SignInLatency,
				SignOutLatency: cfg.Auth.SignOutLatency,
				ErrorTTL:       cfg.Session.ErrorTTL,
			},
			Notifications: service.NotificationManagerConfig{
				Clock:           deps.Clock,
				Logger:          deps.Logger,
				Metrics:         notifyMetrics,
				DefaultDuration: cfg.Notifications.DefaultDuration,
				ErrorDuration:   cfg.Notifications.ErrorDuration,
			},
			Metrics: sessionMetrics,
		},
	})
}

func newAccountService(deps *ServiceDeps, repos *serviceRepositories, obs ObservabilityContainer) (*service.AccountService, error) {
	cfg := deps.Config
	var cache *core.AccountsCache
	if repos.Cache != nil {
		cache = core.NewAccountsCache(repos.Cache, core.AccountsCacheConfig{TTL: cfg.Cache.AccountsTTL})
	}
	var accountsMetrics *metrics.AccountsMetrics
	if obs.Metrics != nil {
		accountsMetrics = obs.Metrics.Accounts
	}
	return service.NewAccountService(service.AccountServiceOptions{
		Repo:  repos.Accounts,
		Cache: cache,
		Config: service.AccountServiceConfig{
			DefaultLimit: cfg.Accounts.DefaultLimit,
			MaxLimit:     cfg.Accounts.MaxLimit,
			Breaker: service.BreakerConfig{
				FailureThreshold: cfg.Accounts.Breaker.FailureThreshold,
				MaxRequests:      cfg.Accounts.Breaker.MaxRequests,
				Interval:         cfg.Accounts.Breaker.Interval,
				Timeout:          cfg.Accounts.Breaker.Timeout,
			},
			Logger:  deps.Logger,
			Metrics: accountsMetrics,
		},
	})
}

// newCookieStore signs the client cookie. Dev mode without a configured secret
// gets a random key, so client ids do not survive a restart.
func newCookieStore(cfg *config.AppConfig, logger *slog.Logger) *sessions.CookieStore {
	secret := []byte(cfg.Session.CookieSecret)
	if len(secret) == 0 {
		logger.Warn("SESSION_COOKIE_SECRET not set; using a random key (dev mode only)")
		secret = securecookie.GenerateRandomKey(64)
	}
	return httpx.NewCookieStore(httpx.CookieConfig{
		Secret: secret,
		MaxAge: cfg.Session.CookieMaxAge,
		Domain: cfg.HTTP.CookieDomain,
		Secure: !cfg.IsDev,
	})
}

// NewServices wires every service from config and connected infrastructure.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	cfg := deps.Config

	repos, err := buildRepositories(deps)
	if err != nil {
		return ServiceContainer{}, err
	}
	obs := buildObservability(cfg.Observability, deps.Registerer)

	clients, err := newClientRegistry(deps, repos, obs)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("client registry: %w", err)
	}
	accounts, err := newAccountService(deps, repos, obs)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("account service: %w", err)
	}

	var sessionMetrics *metrics.SessionMetrics
	if obs.Metrics != nil {
		sessionMetrics = obs.Metrics.Session
	}
	reaper, err := service.NewClientReaperService(service.ClientReaperServiceOptions{
		Registry: clients,
		Config: service.ClientReaperConfig{
			Interval: cfg.Session.ReaperInterval,
			IdleTTL:  cfg.Session.IdleTTL,
			Clock:    deps.Clock,
		},
		Logger:  deps.Logger,
		Metrics: sessionMetrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("client reaper: %w", err)
	}

	ready := []httpx.HealthChecker{accounts}
	if repos.Cache != nil {
		ready = append(ready, repos.Cache)
	}

	limiter := httpx.NewRateLimiter(httpx.RateLimiterConfig{
		Rate:  cfg.Session.LoginRate,
		Burst: cfg.Session.LoginBurst,
		Clock: deps.Clock,
	})

	return ServiceContainer{
		Clients:       clients,
		Reaper:        reaper,
		Accounts:      accounts,
		CookieStore:   newCookieStore(cfg, deps.Logger),
		LoginLimiter:  limiter,
		Ready:         ready,
		Observability: obs,
		Clock:         deps.Clock,
	}, nil
}
