package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/target/demobank-api/internal/core"
	"github.com/target/demobank-api/internal/domain/model"
	apperrors "github.com/target/demobank-api/internal/errors"
	"github.com/target/demobank-api/internal/observability/metrics"
)

const (
	accountsBreakerName = "accounts_repo"
	msgAccountsDown     = "Accounts service is temporarily unavailable"
)

// BreakerConfig tunes the circuit breaker guarding the accounts backend.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32
	// MaxRequests is how many probes are allowed while half-open.
	MaxRequests uint32
	// Interval resets the closed-state counts; zero never resets.
	Interval time.Duration
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
}

// AccountServiceConfig carries paging limits, breaker tuning and ambient deps.
type AccountServiceConfig struct {
	DefaultLimit int
	MaxLimit     int
	Breaker      BreakerConfig
	Logger       *slog.Logger
	Metrics      *metrics.AccountsMetrics
}

// DefaultAccountServiceConfig returns the production defaults.
func DefaultAccountServiceConfig() AccountServiceConfig {
	return AccountServiceConfig{
		DefaultLimit: model.DefaultAccountsLimit,
		MaxLimit:     100,
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
		},
	}
}

// AccountServiceOptions groups dependencies for AccountService.
type AccountServiceOptions struct {
	Repo   core.AccountRepository // Required
	Cache  *core.AccountsCache    // Optional: nil disables caching
	Config AccountServiceConfig
}

// AccountService lists accounts for the proxy endpoint. Repository calls run
// behind a circuit breaker; pages are cached read-through when a cache is set.
type AccountService struct {
	repo    core.AccountRepository
	cache   *core.AccountsCache
	cfg     AccountServiceConfig
	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.AccountsMetrics
}

// NewAccountService constructs an AccountService.
func NewAccountService(opts AccountServiceOptions) (*AccountService, error) {
	if opts.Repo == nil {
		return nil, errors.New("AccountRepository is required")
	}

	cfg := opts.Config
	def := DefaultAccountServiceConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = def.Breaker.FailureThreshold
	}
	if cfg.Breaker.Timeout <= 0 {
		cfg.Breaker.Timeout = def.Breaker.Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &AccountService{
		repo:    opts.Repo,
		cache:   opts.Cache,
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "account_service"),
		metrics: cfg.Metrics,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        accountsBreakerName,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.FailureThreshold
		},
		IsSuccessful:  breakerSuccessful,
		OnStateChange: s.onStateChange,
	})
	s.metrics.ObserveBreakerState(accountsBreakerName, gobreaker.StateClosed.String(), metrics.BreakerClosed)
	return s, nil
}

// List returns up to limit accounts, newest first. A limit of zero takes the
// default; other values are clamped to [1, MaxLimit].
func (s *AccountService) List(ctx context.Context, limit int) ([]*model.Account, error) {
	limit = s.clampLimit(limit)

	if s.cache != nil {
		accounts, ok, err := s.cache.Get(ctx, limit)
		switch {
		case err != nil:
			s.metrics.ObserveCacheLookup("error")
			s.logger.WarnContext(ctx, "accounts cache read failed", "error", err)
		case ok:
			s.metrics.ObserveCacheLookup("hit")
			return accounts, nil
		default:
			s.metrics.ObserveCacheLookup("miss")
		}
	}

	v, err, _ := s.group.Do(strconv.Itoa(limit), func() (any, error) {
		accounts, err := s.fetch(ctx, limit)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Put(ctx, limit, accounts); err != nil {
				s.logger.WarnContext(ctx, "accounts cache write failed", "error", err)
			}
		}
		return accounts, nil
	})
	if err != nil {
		return nil, err
	}
	accounts, _ := v.([]*model.Account)
	if accounts == nil {
		accounts = []*model.Account{}
	}
	return accounts, nil
}

// Create inserts an account and drops cached pages.
func (s *AccountService) Create(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error) {
	if req == nil {
		return nil, apperrors.Validation("account request is required")
	}
	v, err := s.execute(func() (any, error) { return s.repo.Create(ctx, req) })
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "accounts cache invalidation failed", "error", err)
		}
	}
	acc, _ := v.(*model.Account)
	return acc, nil
}

// Health pings the accounts backend without going through the breaker.
func (s *AccountService) Health(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, msgAccountsDown)
	}
	return nil
}

// BreakerState reports the current circuit state.
func (s *AccountService) BreakerState() gobreaker.State {
	return s.breaker.State()
}

func (s *AccountService) fetch(ctx context.Context, limit int) ([]*model.Account, error) {
	v, err := s.execute(func() (any, error) {
		return s.repo.List(ctx, model.AccountsListOptions{Limit: limit})
	})
	if err != nil {
		return nil, err
	}
	accounts, _ := v.([]*model.Account)
	return accounts, nil
}

// execute runs fn through the breaker and normalizes failures to AppErrors.
func (s *AccountService) execute(fn func() (any, error)) (any, error) {
	v, err := s.breaker.Execute(fn)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, msgAccountsDown)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return nil, err
	}
	mapped := apperrors.MapDBError(err)
	if errors.As(mapped, &appErr) {
		return nil, mapped
	}
	return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, fmt.Sprintf("accounts backend error: %v", err))
}

func (s *AccountService) clampLimit(limit int) int {
	switch {
	case limit == 0:
		return s.cfg.DefaultLimit
	case limit < 1:
		return 1
	case limit > s.cfg.MaxLimit:
		return s.cfg.MaxLimit
	default:
		return limit
	}
}

func (s *AccountService) onStateChange(name string, from, to gobreaker.State) {
	s.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	s.metrics.ObserveBreakerState(name, to.String(), breakerGaugeValue(to))
}

// breakerSuccessful keeps caller mistakes and cancellations from tripping the circuit.
func breakerSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeNotFound, apperrors.ErrCodeConflict,
		apperrors.ErrCodeForeignKey, apperrors.ErrCodeCanceled:
		return true
	default:
		return false
	}
}

func breakerGaugeValue(st gobreaker.State) float64 {
	switch st {
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}
