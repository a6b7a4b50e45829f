package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_Sorted(t *testing.T) {
	got, err := versions()
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "0001_create_accounts", got[0])
	assert.IsIncreasing(t, got)
}
