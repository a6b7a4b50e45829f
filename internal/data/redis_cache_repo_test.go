package data

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/demobank-api/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestRedisCacheRepo_Set_Get_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := "test:key:1"
		value := []byte("test value")
		ttl := 5 * time.Minute

		require.NoError(t, repo.Set(ctx, key, value, ttl))

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("get non-existent key", func(t *testing.T) {
		result, err := repo.Get(ctx, "non:existent:key")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete existing key", func(t *testing.T) {
		key := "test:key:2"
		require.NoError(t, repo.Set(ctx, key, []byte("to be deleted"), time.Minute))

		deleted, err := repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, deleted)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete non-existent key", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, "non:existent:key")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		require.Error(t, repo.Set(ctx, "", []byte("x"), 0))
		_, err := repo.Get(ctx, "")
		require.Error(t, err)
	})
}

func TestRedisCacheRepo_DeletePrefix(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, repo.Set(ctx, fmt.Sprintf("accounts:list:%d", i), []byte("[]"), time.Minute))
	}
	require.NoError(t, repo.Set(ctx, "other:key", []byte("keep"), time.Minute))

	n, err := repo.DeletePrefix(ctx, "accounts:list:")
	require.NoError(t, err)
	assert.Equal(t, 250, n)

	kept, err := repo.Get(ctx, "other:key")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), kept)

	_, err = repo.DeletePrefix(ctx, "")
	require.Error(t, err)
}

func TestRedisCacheRepo_Health(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)

	require.NoError(t, NewRedisCacheRepo(client).Health(context.Background()))
}
