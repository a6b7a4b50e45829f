// Package core provides repository ports and the small shared building blocks
// (caching, state broadcasting) used by the demobank services.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/target/demobank-api/internal/domain/model"
)

// CacheRepository defines the interface for caching operations.
// The core defines the interface and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value with the given TTL. A zero TTL never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns nil without error when the key is missing or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePrefix removes every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

const accountsPagePrefix = "accounts:list:"

// AccountsCache stores rendered account pages keyed by page size.
type AccountsCache struct {
	cache CacheRepository
	ttl   time.Duration
}

// AccountsCacheConfig holds configuration for account page caching.
type AccountsCacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

// DefaultAccountsCacheConfig returns an AccountsCacheConfig with sensible defaults.
func DefaultAccountsCacheConfig() AccountsCacheConfig {
	return AccountsCacheConfig{TTL: 30 * time.Second}
}

// NewAccountsCache creates a new AccountsCache. A nil repository yields nil,
// which callers treat as "caching disabled".
func NewAccountsCache(repo CacheRepository, cfg AccountsCacheConfig) *AccountsCache {
	if repo == nil || cfg.TTL <= 0 {
		return nil
	}
	return &AccountsCache{cache: repo, ttl: cfg.TTL}
}

// Get returns the cached page for limit. ok is false on a miss.
func (c *AccountsCache) Get(ctx context.Context, limit int) (accounts []*model.Account, ok bool, err error) {
	raw, err := c.cache.Get(ctx, pageKey(limit))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, false, fmt.Errorf("decode cached accounts: %w", err)
	}
	return accounts, true, nil
}

// Put caches a page for limit.
func (c *AccountsCache) Put(ctx context.Context, limit int, accounts []*model.Account) error {
	raw, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	return c.cache.Set(ctx, pageKey(limit), raw, c.ttl)
}

// Invalidate drops every cached page.
func (c *AccountsCache) Invalidate(ctx context.Context) error {
	_, err := c.cache.DeletePrefix(ctx, accountsPagePrefix)
	return err
}

func pageKey(limit int) string {
	return accountsPagePrefix + strconv.Itoa(limit)
}
