package auth

// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/target/demobank-api/internal/domain/auth"
	"github.com/target/demobank-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SnapshotStore     = (*FailingSnapshotStore)(nil)
	_ ports.CredentialMatcher = (*FuncMatcher)(nil)
)

// FailingSnapshotStore is an in-memory snapshot store whose operations can be
// made to fail. It records how often each operation ran.
type FailingSnapshotStore struct {
	mu     sync.Mutex
	values map[string][]byte

	GetErr    error
	SetErr    error
	RemoveErr error

	Gets    int
	Sets    int
	Removes int
}

// NewFailingSnapshotStore creates a store that succeeds until an error field is set.
func NewFailingSnapshotStore() *FailingSnapshotStore {
	return &FailingSnapshotStore{values: make(map[string][]byte)}
}

func (s *FailingSnapshotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Gets++
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	v, ok := s.values[key]
	if !ok {
		return nil, ports.ErrSnapshotNotFound
	}
	return v, nil
}

func (s *FailingSnapshotStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sets++
	if s.SetErr != nil {
		return s.SetErr
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Remove leaves the value in place when RemoveErr is set.
func (s *FailingSnapshotStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Removes++
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	delete(s.values, key)
	return nil
}

// Put seeds a raw value without counting it as a Set.
func (s *FailingSnapshotStore) Put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Raw returns the stored value and whether it exists.
func (s *FailingSnapshotStore) Raw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Calls returns the Get, Set and Remove counts under the lock.
func (s *FailingSnapshotStore) Calls() (gets, sets, removes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Gets, s.Sets, s.Removes
}

// FuncMatcher adapts a function to ports.CredentialMatcher. A nil MatchFunc
// never matches.
type FuncMatcher struct {
	MatchFunc func(ctx context.Context, username, password string) (domainauth.Identity, bool, error)

	mu    sync.Mutex
	calls int
}

func (m *FuncMatcher) Match(ctx context.Context, username, password string) (domainauth.Identity, bool, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.MatchFunc == nil {
		return domainauth.Identity{}, false, nil
	}
	return m.MatchFunc(ctx, username, password)
}

// Calls reports how many times Match ran.
func (m *FuncMatcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
