package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/demobank-api/config"
)

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// backgroundService describes a startable component gated by a service mode.
type backgroundService struct {
	mode config.ServiceMode
	name string
	run  func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []backgroundService {
	shutdownTimeout := 10 * time.Second
	if cfg.Config.HTTP.ShutdownTimeout > 0 {
		shutdownTimeout = cfg.Config.HTTP.ShutdownTimeout
	}
	return []backgroundService{
		{
			mode: config.ServiceModeHTTP,
			name: "http server",
			run: func(ctx context.Context) error {
				server := NewHTTPServer(&HTTPServerConfig{Config: cfg.Config, Services: cfg.Services, Logger: logger})
				return ServeHTTP(ctx, server, shutdownTimeout, logger)
			},
		},
		{
			mode: config.ServiceModeReaper,
			name: "client reaper",
			run: func(ctx context.Context) error {
				if cfg.Services.Reaper == nil {
					return nil
				}
				return cfg.Services.Reaper.Run(ctx)
			},
		},
	}
}

// RunServices runs every enabled service until ctx is canceled or one fails.
// A failing service cancels the others.
func RunServices(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config with AppConfig is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range buildBackgroundServices(cfg, logger) {
		if !enabled[svc.mode] {
			continue
		}
		g.Go(func() error {
			logger.InfoContext(gctx, "service started", "service", svc.name, "mode", svc.mode)
			if err := svc.run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			logger.InfoContext(gctx, svc.name+" stopped")
			return nil
		})
	}

	err = g.Wait()
	if cfg.Services.Clients != nil {
		cfg.Services.Clients.Close()
	}
	return err
}

// RunServicesWithShutdown runs the enabled services until SIGINT/SIGTERM or a
// service failure.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunServices(ctx, cfg)
}
