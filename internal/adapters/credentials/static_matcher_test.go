package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/demobank-api/internal/domain/auth"
)

func TestStaticMatcher_Match(t *testing.T) {
	m := NewStaticMatcher(domainauth.DefaultCredentials())
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantOK   bool
		wantID   int64
	}{
		{"demo user", "demo@bank.com", "demo123", true, 1},
		{"second user", "test@bank.com", "test123", true, 2},
		{"wrong password", "demo@bank.com", "demo124", false, 0},
		{"case sensitive username", "Demo@bank.com", "demo123", false, 0},
		{"cross-matched pair", "demo@bank.com", "test123", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok, err := m.Match(ctx, tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id.ID)
		})
	}
}

func TestStaticMatcher_CopiesRecords(t *testing.T) {
	records := domainauth.DefaultCredentials()
	m := NewStaticMatcher(records)
	records[0].Password = "changed"

	_, ok, err := m.Match(context.Background(), "demo@bank.com", "demo123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, m.Len())
}

func TestStaticMatcher_CanceledContext(t *testing.T) {
	m := NewStaticMatcher(domainauth.DefaultCredentials())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := m.Match(ctx, "demo@bank.com", "demo123")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}
