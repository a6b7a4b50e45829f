package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/demobank-api/internal/core"
	"github.com/target/demobank-api/internal/domain/model"
	"github.com/target/demobank-api/internal/mocks"
	"go.uber.org/mock/gomock"
)

func TestNewAccountsCache_Disabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	assert.Nil(t, core.NewAccountsCache(nil, core.DefaultAccountsCacheConfig()))
	assert.Nil(t, core.NewAccountsCache(mocks.NewMockCacheRepository(ctrl), core.AccountsCacheConfig{}))
}

func TestAccountsCache_GetPut(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(*mocks.MockCacheRepository)
		wantOK  bool
		wantLen int
		wantErr bool
	}{
		{
			name: "miss",
			setup: func(c *mocks.MockCacheRepository) {
				c.EXPECT().Get(gomock.Any(), "accounts:list:20").Return(nil, nil)
			},
		},
		{
			name: "hit",
			setup: func(c *mocks.MockCacheRepository) {
				c.EXPECT().Get(gomock.Any(), "accounts:list:20").
					Return([]byte(`[{"id":"a","name":"Checking","balance":10.5,"currency":"USD","created_at":"2024-01-01T00:00:00Z"}]`), nil)
			},
			wantOK:  true,
			wantLen: 1,
		},
		{
			name: "corrupt entry",
			setup: func(c *mocks.MockCacheRepository) {
				c.EXPECT().Get(gomock.Any(), "accounts:list:20").Return([]byte(`{`), nil)
			},
			wantErr: true,
		},
		{
			name: "backend error",
			setup: func(c *mocks.MockCacheRepository) {
				c.EXPECT().Get(gomock.Any(), "accounts:list:20").Return(nil, errors.New("conn reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockCacheRepository(ctrl)
			tt.setup(repo)

			cache := core.NewAccountsCache(repo, core.AccountsCacheConfig{TTL: time.Minute})
			got, ok, err := cache.Get(context.Background(), 20)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestAccountsCache_PutAndInvalidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockCacheRepository(ctrl)
	cache := core.NewAccountsCache(repo, core.AccountsCacheConfig{TTL: time.Minute})

	repo.EXPECT().Set(gomock.Any(), "accounts:list:5", gomock.Any(), time.Minute).Return(nil)
	repo.EXPECT().DeletePrefix(gomock.Any(), "accounts:list:").Return(3, nil)

	require.NoError(t, cache.Put(context.Background(), 5, []*model.Account{{ID: "a", Name: "Checking"}}))
	require.NoError(t, cache.Invalidate(context.Background()))
}
