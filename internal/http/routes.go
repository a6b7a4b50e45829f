package httpx

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"

	"github.com/target/demobank-api/internal/observability/metrics"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Clients  ClientAcquirer  // Required: per-client session and notification workspaces
	Accounts AccountsService // Required: accounts proxy
	// CookieStore signs the client id cookie. Required.
	CookieStore sessions.Store
	CookieName  string
	// LoginLimiter throttles sign-in attempts; nil disables throttling.
	LoginLimiter *RateLimiter
	// Ready lists the dependencies /readyz checks.
	Ready []HealthChecker
	// Metrics and MetricsHandler are optional; /metrics is served only when a handler is set.
	Metrics        *metrics.HTTPMetrics
	MetricsHandler http.Handler
	CORSOrigins    []string
	Clock          clockwork.Clock
	Logger         *slog.Logger
}

// NewRouter creates the API router wrapped in the standard middleware stack:
// Recover, Logging, Metrics, SecurityHeaders, CORS.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	resolver := NewClientResolver(ClientResolverOptions{
		Store:      services.CookieStore,
		Clients:    services.Clients,
		CookieName: services.CookieName,
		Logger:     logger,
	})
	withClient := func(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
		return Chain(h, append([]func(http.Handler) http.Handler{resolver.Middleware}, mws...)...)
	}

	accountHandlers := &AccountHandlers{Svc: services.Accounts, Logger: logger}
	sessionHandlers := &SessionHandlers{Logger: logger}
	notificationHandlers := &NotificationHandlers{}
	eventHandlers := &EventHandlers{Clock: services.Clock, Logger: logger, AllowedOrigins: services.CORSOrigins}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.Ready, logger))
	if services.MetricsHandler != nil {
		mux.Handle("GET /metrics", services.MetricsHandler)
	}

	mux.HandleFunc("GET /api/accounts", accountHandlers.List)

	registerSessionRoutes(mux, sessionHandlers, sessionRouteConfig{withClient: withClient, limiter: services.LoginLimiter})
	registerNotificationRoutes(mux, notificationHandlers, withClient)
	mux.Handle("GET /api/events", withClient(eventHandlers.Stream))

	handler := &notFoundHandler{mux: mux}

	return Chain(handler,
		Recover(logger),
		Logging(logger),
		services.Metrics.Middleware,
		SecurityHeaders(),
		CORS(services.CORSOrigins),
	)
}

type clientWrapper func(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler

type sessionRouteConfig struct {
	withClient clientWrapper
	limiter    *RateLimiter
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers, cfg sessionRouteConfig) {
	mux.Handle("GET /api/session", cfg.withClient(h.State))
	mux.Handle("POST /api/session/login", cfg.withClient(h.Login, cfg.limiter.Middleware))
	mux.Handle("POST /api/session/logout", cfg.withClient(h.Logout))
	mux.Handle("POST /api/session/refresh", cfg.withClient(h.Refresh))
	mux.Handle("DELETE /api/session/error", cfg.withClient(h.ClearError))
	mux.Handle("GET /api/me", cfg.withClient(h.Me, RequireIdentity))
}

func registerNotificationRoutes(mux *http.ServeMux, h *NotificationHandlers, withClient clientWrapper) {
	mux.Handle("GET /api/notifications", withClient(h.List))
	mux.Handle("POST /api/notifications", withClient(h.Create))
	mux.Handle("DELETE /api/notifications", withClient(h.ClearAll))
	mux.Handle("DELETE /api/notifications/{id}", withClient(h.Dismiss))
}

// notFoundHandler answers unmatched routes with the JSON 404 envelope instead
// of the mux's plain-text 404/405 responses.
type notFoundHandler struct {
	mux *http.ServeMux
}

func (h *notFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, pattern := h.mux.Handler(r); pattern == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			Message: fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path),
		})
		return
	}
	h.mux.ServeHTTP(w, r)
}
