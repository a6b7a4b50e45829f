package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/target/demobank-api/internal/domain/auth"
)

// ErrSnapshotNotFound is returned by SnapshotStore.Get when the key holds no value.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore is the durable key-value storage collaborator used for session
// snapshots. Implementations must tolerate absence and never interpret values.
type SnapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// CredentialMatcher checks a username/password pair against the configured
// credential records. ok is false when nothing matches; err is reserved for
// unexpected failures.
type CredentialMatcher interface {
	Match(ctx context.Context, username, password string) (id domainauth.Identity, ok bool, err error)
}
