package core

import (
	"context"

	"github.com/target/demobank-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not on the data layer.

// AccountRepository defines the interface for account data operations.
type AccountRepository interface {
	// List returns accounts ordered by created_at descending, at most opts.Limit rows.
	List(ctx context.Context, opts model.AccountsListOptions) ([]*model.Account, error)
	Create(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error)
	// Ping verifies the backing store answers.
	Ping(ctx context.Context) error
}
