// Package mocks provides gomock implementations of the repository and storage ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockAccountRepository(ctrl)
//	repo.EXPECT().List(gomock.Any(), gomock.Any()).Return(accounts, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=account_repository_mock.go github.com/target/demobank-api/internal/core AccountRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/demobank-api/internal/core CacheRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=snapshot_store_mock.go github.com/target/demobank-api/internal/ports SnapshotStore
