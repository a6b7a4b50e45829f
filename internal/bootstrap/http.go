package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/demobank-api/config"
	httpx "github.com/target/demobank-api/internal/http"
	"github.com/target/demobank-api/internal/observability/metrics"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// BuildHTTPHandler assembles the API router with its middleware stack.
func BuildHTTPHandler(cfg *HTTPServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	var httpMetrics *metrics.HTTPMetrics
	if cfg.Services.Observability.Metrics != nil {
		httpMetrics = cfg.Services.Observability.Metrics.HTTP
	}

	return httpx.NewRouter(httpx.RouterServices{
		Clients:        cfg.Services.Clients,
		Accounts:       cfg.Services.Accounts,
		CookieStore:    cfg.Services.CookieStore,
		CookieName:     appCfg.Session.CookieName,
		LoginLimiter:   cfg.Services.LoginLimiter,
		Ready:          cfg.Services.Ready,
		Metrics:        httpMetrics,
		MetricsHandler: cfg.Services.Observability.Handler,
		CORSOrigins:    appCfg.HTTP.CORSAllowedOrigins,
		Clock:          cfg.Services.Clock,
		Logger:         logger,
	})
}

// NewHTTPServer creates the HTTP server without starting it. Write timeouts are
// left unset because /api/events holds long-lived websocket connections.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	addr := ":4000"
	readHeader := 10 * time.Second
	if cfg.Config != nil {
		if cfg.Config.HTTP.Addr != "" {
			addr = cfg.Config.HTTP.Addr
		}
		if cfg.Config.HTTP.ReadHeaderTimeout > 0 {
			readHeader = cfg.Config.HTTP.ReadHeaderTimeout
		}
	}
	return &http.Server{
		Addr:              addr,
		Handler:           BuildHTTPHandler(cfg),
		ReadHeaderTimeout: readHeader,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeHTTP runs server until ctx is canceled, then shuts it down gracefully.
func ServeHTTP(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	// Parent ctx is already canceled; shutdown gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
