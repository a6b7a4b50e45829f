// Package devseed populates a development database with demo accounts.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/target/demobank-api/internal/data"
	"github.com/target/demobank-api/internal/domain/model"
	"github.com/target/demobank-api/internal/service"
)

type accountCreator interface {
	Create(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error)
}

type accountCounter interface {
	Count(ctx context.Context) (int, error)
}

// Services bundles the dependencies needed for development seeding.
type Services struct {
	accounts accountCreator
	counter  accountCounter
}

// NewServices constructs the seeding dependencies for db. Accounts go through
// AccountService so validation matches the API path.
func NewServices(db *sql.DB) (Services, error) {
	repo := data.NewAccountRepo(db)
	svc, err := service.NewAccountService(service.AccountServiceOptions{Repo: repo})
	if err != nil {
		return Services{}, fmt.Errorf("account service: %w", err)
	}
	return Services{accounts: svc, counter: repo}, nil
}

// DefaultAccounts is the fixed demo data set.
func DefaultAccounts() []model.CreateAccountRequest {
	return []model.CreateAccountRequest{
		{Name: "Everyday Checking", Balance: 2450.18, Currency: "USD"},
		{Name: "High-Yield Savings", Balance: 18230.00, Currency: "USD"},
		{Name: "Travel Fund", Balance: 1299.99, Currency: "EUR"},
		{Name: "Emergency Reserve", Balance: 5000.00, Currency: "USD"},
		{Name: "Credit Card", Balance: -342.57, Currency: "USD"},
	}
}

// Run inserts DefaultAccounts when the accounts table is empty. A populated
// table is left untouched so repeated runs do not duplicate rows.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	n, err := svcs.counter.Count(ctx)
	if err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if n > 0 {
		logger.InfoContext(ctx, "accounts already present; skipping seed", "count", n)
		return nil
	}

	failures := 0
	for _, req := range DefaultAccounts() {
		created, err := svcs.accounts.Create(ctx, &req)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create account", "name", req.Name, "error", err)
			failures++
			continue
		}
		logger.InfoContext(ctx, "created account", "id", created.ID, "name", created.Name)
	}
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}
