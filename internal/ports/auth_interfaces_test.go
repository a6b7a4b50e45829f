package ports_test

import (
	"testing"

	"github.com/target/demobank-api/internal/adapters/credentials"
	"github.com/target/demobank-api/internal/adapters/memory"
	redisadapter "github.com/target/demobank-api/internal/adapters/redis"
	mocks "github.com/target/demobank-api/internal/mocks/auth"
	"github.com/target/demobank-api/internal/ports"
)

// This test only verifies that adapters and doubles conform to the ports at compile time.
func TestImplementationsSatisfyPorts(t *testing.T) {
	t.Helper()

	var _ ports.SnapshotStore = (*memory.SnapshotStore)(nil)
	var _ ports.SnapshotStore = (*redisadapter.SnapshotStore)(nil)
	var _ ports.SnapshotStore = (*mocks.FailingSnapshotStore)(nil)
	var _ ports.CredentialMatcher = (*credentials.StaticMatcher)(nil)
	var _ ports.CredentialMatcher = (*mocks.FuncMatcher)(nil)
}
