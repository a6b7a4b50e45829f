package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/target/demobank-api/internal/observability/metrics"
)

// ClientEvictor drops idle client workspaces.
type ClientEvictor interface {
	EvictIdle(ctx context.Context, idleTTL time.Duration) int
}

// ClientReaperConfig controls how often idle clients are swept.
type ClientReaperConfig struct {
	Interval time.Duration
	IdleTTL  time.Duration
	Clock    clockwork.Clock
}

// ClientReaperServiceOptions groups dependencies for ClientReaperService.
type ClientReaperServiceOptions struct {
	Registry ClientEvictor          // Required: client registry
	Config   ClientReaperConfig     // Required: sweep interval and idle TTL
	Logger   *slog.Logger           // Optional: structured logger
	Metrics  *metrics.SessionMetrics // Optional: eviction counter
}

// ClientReaperService periodically evicts client workspaces that have been idle
// longer than the configured TTL.
type ClientReaperService struct {
	registry ClientEvictor
	config   ClientReaperConfig
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *metrics.SessionMetrics
}

// NewClientReaperService constructs a new ClientReaperService.
func NewClientReaperService(opts ClientReaperServiceOptions) (*ClientReaperService, error) {
	if opts.Registry == nil {
		return nil, errors.New("ClientEvictor is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}
	if opts.Config.IdleTTL <= 0 {
		return nil, errors.New("client idle TTL must be positive")
	}

	clock := opts.Config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "client_reaper")
		logger.Debug("ClientReaperService initialized",
			"interval", opts.Config.Interval,
			"idle_ttl", opts.Config.IdleTTL,
		)
	}

	return &ClientReaperService{
		registry: opts.Registry,
		config:   opts.Config,
		clock:    clock,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Run sweeps idle clients until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ClientReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting client reaper", "interval", s.config.Interval)
	}

	// Add jitter so replicas started together do not sweep in lockstep
	s.waitWithJitter(ctx)

	ticker := s.clock.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweep(ctx)

	return s.runLoop(ctx, ticker)
}

// Sweep runs a single eviction pass and returns the number of evicted clients.
func (s *ClientReaperService) Sweep(ctx context.Context) int {
	return s.sweep(ctx)
}

func (s *ClientReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-s.clock.After(jitter):
	case <-ctx.Done():
	}
}

func (s *ClientReaperService) runLoop(ctx context.Context, ticker clockwork.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "client reaper stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *ClientReaperService) sweep(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	n := s.registry.EvictIdle(ctx, s.config.IdleTTL)
	if n > 0 {
		s.metrics.AddEvictions(n)
		if s.logger != nil {
			s.logger.InfoContext(ctx, "evicted idle clients", "count", n, "idle_ttl", s.config.IdleTTL)
		}
	}
	return n
}
